package orders

import (
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrInvalidUser    = errors.New("userId must be greater than 0")
	ErrInvalidProduct = errors.New("productId must be greater than 0")
	ErrInvalidAmount  = errors.New("amount must be greater than 0")
)

type PurchaseOrder struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"userId"`
	ProductID int       `json:"productId"`
	Price     float64   `json:"price"`
	Status    Status    `json:"orderStatus"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event renders the order as an order-events message carrying its current status.
func (o PurchaseOrder) Event() saga.OrderEvent {
	id := o.ID
	return saga.OrderEvent{
		OrderRequest: saga.OrderRequest{
			UserID:    o.UserID,
			ProductID: o.ProductID,
			Amount:    o.Price,
			OrderID:   &id,
		},
		Status: o.Status.Wire(),
	}
}

// ValidateRequest guards the boundary. A zero amount is rejected because it
// would read as the refund signal downstream.
func ValidateRequest(userID, productID int, amount float64) error {
	switch {
	case userID <= 0:
		return ErrInvalidUser
	case productID <= 0:
		return ErrInvalidProduct
	case amount <= 0:
		return ErrInvalidAmount
	}
	return nil
}
