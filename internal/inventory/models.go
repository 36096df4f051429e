package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

type Product struct {
	ProductID      int `json:"productId"`
	AvailableStock int `json:"availableStock"`
}

type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "RESERVED"
	ReservationRejected ReservationStatus = "REJECTED"
)

// Reservation records the outcome of the inventory step for one order.
type Reservation struct {
	OrderID   uuid.UUID
	ProductID int
	UserID    int
	Status    ReservationStatus
	CreatedAt time.Time
}

// SeedProducts are the products a fresh inventory store starts with.
var SeedProducts = []Product{
	{ProductID: 101, AvailableStock: 10},
	{ProductID: 102, AvailableStock: 0},
}
