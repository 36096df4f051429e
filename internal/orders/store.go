package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	Create(ctx context.Context, o PurchaseOrder) error
	Get(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	List(ctx context.Context) ([]PurchaseOrder, error)
	// UpdateStatus moves the order to `to` only while its stored status is still
	// `from`. It reports whether the row changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error)
	// ListStalled returns CREATED orders created before the given instant.
	ListStalled(ctx context.Context, createdBefore time.Time) ([]PurchaseOrder, error)
}
