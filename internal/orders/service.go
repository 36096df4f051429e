package orders

import (
	"context"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Service is the order participant. It only creates orders; their status is
// moved afterwards by the orchestrator.
type Service struct {
	store Store
	pub   saga.Publisher
	clock clock.Clock
	log   zerolog.Logger
}

func NewService(store Store, pub saga.Publisher, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{store: store, pub: pub, clock: clk, log: log}
}

// CreateOrder persists a CREATED order and emits OrderCreated, which starts the saga.
func (s *Service) CreateOrder(ctx context.Context, userID, productID int, amount float64) (PurchaseOrder, error) {
	if err := ValidateRequest(userID, productID, amount); err != nil {
		return PurchaseOrder{}, err
	}

	now := s.clock.Now()
	o := PurchaseOrder{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Price:     amount,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return PurchaseOrder{}, errors.Wrap(err, "create order")
	}

	// A failed publish leaves the order CREATED; the stall sweeper reports it.
	if err := s.pub.Publish(ctx, o.Event()); err != nil {
		return o, errors.Wrapf(err, "publish OrderCreated for %s", o.ID)
	}

	s.log.Info().
		Str("order_id", o.ID.String()).
		Int("user_id", userID).
		Int("product_id", productID).
		Float64("amount", amount).
		Msg("order created")
	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]PurchaseOrder, error) {
	return s.store.List(ctx)
}
