package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Store is the inventory participant's persistence. A product read with
// GetProductForUpdate stays locked until the WithTx callback returns.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetProduct(ctx context.Context, productID int) (Product, error)
	GetProductForUpdate(ctx context.Context, productID int) (Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	ListProducts(ctx context.Context) ([]Product, error)

	GetReservation(ctx context.Context, orderID uuid.UUID) (Reservation, error)
	SaveReservation(ctx context.Context, r Reservation) error
}
