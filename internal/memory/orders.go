// Package memory holds in-process implementations of the participant stores,
// the processed-event ledger and the message bus. They back the unit tests
// and cmd/sagademo.
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

type OrderStore struct {
	m *xsync.MapOf[uuid.UUID, orders.PurchaseOrder]
}

func NewOrderStore() *OrderStore {
	return &OrderStore{m: xsync.NewMapOf[uuid.UUID, orders.PurchaseOrder]()}
}

func (s *OrderStore) Create(_ context.Context, o orders.PurchaseOrder) error {
	s.m.Store(o.ID, o)
	return nil
}

func (s *OrderStore) Get(_ context.Context, id uuid.UUID) (orders.PurchaseOrder, error) {
	o, ok := s.m.Load(id)
	if !ok {
		return orders.PurchaseOrder{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderStore) List(_ context.Context) ([]orders.PurchaseOrder, error) {
	out := make([]orders.PurchaseOrder, 0, s.m.Size())
	s.m.Range(func(_ uuid.UUID, o orders.PurchaseOrder) bool {
		out = append(out, o)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *OrderStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to orders.Status, at time.Time) (bool, error) {
	var changed, found bool
	s.m.Compute(id, func(o orders.PurchaseOrder, loaded bool) (orders.PurchaseOrder, bool) {
		if !loaded {
			return o, true
		}
		found = true
		if o.Status == from {
			o.Status = to
			o.UpdatedAt = at
			changed = true
		}
		return o, false
	})
	if !found {
		return false, orders.ErrOrderNotFound
	}
	return changed, nil
}

func (s *OrderStore) ListStalled(_ context.Context, createdBefore time.Time) ([]orders.PurchaseOrder, error) {
	var out []orders.PurchaseOrder
	s.m.Range(func(_ uuid.UUID, o orders.PurchaseOrder) bool {
		if o.Status == orders.StatusCreated && o.CreatedAt.Before(createdBefore) {
			out = append(out, o)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
