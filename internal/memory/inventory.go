package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// InventoryStore follows the same staging rules as PaymentStore.
type InventoryStore struct {
	mu           sync.Mutex
	products     *xsync.MapOf[int, inventory.Product]
	reservations *xsync.MapOf[uuid.UUID, inventory.Reservation]

	staged *inventoryTx
}

type inventoryTx struct {
	products     map[int]inventory.Product
	reservations map[uuid.UUID]inventory.Reservation
}

func NewInventoryStore(products ...inventory.Product) *InventoryStore {
	s := &InventoryStore{
		products:     xsync.NewMapOf[int, inventory.Product](),
		reservations: xsync.NewMapOf[uuid.UUID, inventory.Reservation](),
	}
	for _, p := range products {
		s.products.Store(p.ProductID, p)
	}
	return s
}

func (s *InventoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx, s) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = &inventoryTx{
		products:     map[int]inventory.Product{},
		reservations: map[uuid.UUID]inventory.Reservation{},
	}
	defer func() { s.staged = nil }()

	if err := fn(withOwner(ctx, s)); err != nil {
		return err
	}
	for k, v := range s.staged.products {
		s.products.Store(k, v)
	}
	for k, v := range s.staged.reservations {
		s.reservations.Store(k, v)
	}
	return nil
}

func (s *InventoryStore) GetProduct(_ context.Context, productID int) (inventory.Product, error) {
	p, ok := s.products.Load(productID)
	if !ok {
		return inventory.Product{}, inventory.ErrProductNotFound
	}
	return p, nil
}

func (s *InventoryStore) GetProductForUpdate(ctx context.Context, productID int) (inventory.Product, error) {
	if inTx(ctx, s) {
		if p, ok := s.staged.products[productID]; ok {
			return p, nil
		}
	}
	return s.GetProduct(ctx, productID)
}

func (s *InventoryStore) UpdateProduct(ctx context.Context, p inventory.Product) error {
	if inTx(ctx, s) {
		s.staged.products[p.ProductID] = p
		return nil
	}
	s.products.Store(p.ProductID, p)
	return nil
}

func (s *InventoryStore) ListProducts(_ context.Context) ([]inventory.Product, error) {
	out := make([]inventory.Product, 0, s.products.Size())
	s.products.Range(func(_ int, p inventory.Product) bool {
		out = append(out, p)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *InventoryStore) GetReservation(ctx context.Context, orderID uuid.UUID) (inventory.Reservation, error) {
	if inTx(ctx, s) {
		if r, ok := s.staged.reservations[orderID]; ok {
			return r, nil
		}
	}
	r, ok := s.reservations.Load(orderID)
	if !ok {
		return inventory.Reservation{}, inventory.ErrReservationNotFound
	}
	return r, nil
}

func (s *InventoryStore) SaveReservation(ctx context.Context, r inventory.Reservation) error {
	if inTx(ctx, s) {
		s.staged.reservations[r.OrderID] = r
		return nil
	}
	s.reservations.Store(r.OrderID, r)
	return nil
}
