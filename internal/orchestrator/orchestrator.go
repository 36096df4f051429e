// Package orchestrator drives the purchase saga. It holds no memory between
// events other than the order aggregate: each event is matched on its kind
// against the order's current status.
package orchestrator

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/metrics"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// OrderStore is the slice of the order store the orchestrator needs.
type OrderStore interface {
	Get(ctx context.Context, id uuid.UUID) (orders.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to orders.Status, at time.Time) (bool, error)
}

// Ledger remembers which (order, kind) pairs were already handled, so a
// redelivered event does not re-emit its command.
type Ledger interface {
	Seen(ctx context.Context, orderID uuid.UUID, kind saga.Kind) (bool, error)
	Mark(ctx context.Context, orderID uuid.UUID, kind saga.Kind) error
}

type Option func(*Orchestrator)

// WithLedger enables processed-event deduplication. Without it only the
// terminal-status check protects against redelivery.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

type Orchestrator struct {
	store   OrderStore
	pub     saga.Publisher
	log     zerolog.Logger
	ledger  Ledger
	metrics *metrics.Metrics
	clock   clock.Clock
}

func New(store OrderStore, pub saga.Publisher, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: store,
		pub:   pub,
		log:   log,
		clock: clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle applies one event to its order.
//
//	CREATED + OrderCreated      -> PaymentCommand
//	CREATED + PaymentCompleted  -> InventoryCommand
//	CREATED + PaymentFailed     -> CANCELLED
//	CREATED + InventoryReserved -> COMPLETED
//	CREATED + InventoryRejected -> refund PaymentCommand, CANCELLED
//
// Orders already COMPLETED or CANCELLED ignore every event.
func (o *Orchestrator) Handle(ctx context.Context, msg saga.Message) error {
	kind := msg.Kind()
	orderID := msg.CorrelationID()
	log := o.log.With().Str("order_id", orderID.String()).Stringer("event", kind).Logger()

	switch kind {
	case saga.KindOrderCompleted, saga.KindOrderCancelled:
		// our own finalization notices coming back on order-events
		o.metrics.Skipped(metrics.SkipNotification)
		return nil
	case saga.KindOrderCreated, saga.KindPaymentCompleted, saga.KindPaymentFailed,
		saga.KindInventoryReserved, saga.KindInventoryRejected:
	case saga.KindUnknown, saga.KindProcessPayment, saga.KindRefundPayment, saga.KindDeductInventory:
		return errors.Wrapf(saga.ErrUnexpectedMessage, "orchestrator got %s", kind)
	default:
		return errors.Wrapf(saga.ErrUnexpectedMessage, "orchestrator got kind %d", kind)
	}

	if o.ledger != nil {
		seen, err := o.ledger.Seen(ctx, orderID, kind)
		if err != nil {
			return errors.Wrap(err, "check ledger")
		}
		if seen {
			log.Info().Msg("event already handled, skipping")
			o.metrics.Skipped(metrics.SkipDuplicate)
			return nil
		}
	}

	order, err := o.store.Get(ctx, orderID)
	if err != nil {
		return errors.Wrapf(err, "load order %s", orderID)
	}
	if order.Status.Terminal() {
		log.Info().Str("status", string(order.Status)).Msg("order already final, ignoring event")
		o.metrics.Skipped(metrics.SkipTerminal)
		return nil
	}

	switch kind {
	case saga.KindOrderCreated:
		err = o.send(ctx, log, saga.PaymentCommand{
			UserID:  order.UserID,
			OrderID: order.ID,
			Amount:  order.Price,
		})
	case saga.KindPaymentCompleted:
		err = o.send(ctx, log, saga.InventoryCommand{
			UserID:    order.UserID,
			ProductID: order.ProductID,
			OrderID:   order.ID,
		})
	case saga.KindPaymentFailed:
		err = o.finalize(ctx, log, order, orders.StatusCancelled)
	case saga.KindInventoryReserved:
		err = o.finalize(ctx, log, order, orders.StatusCompleted)
	case saga.KindInventoryRejected:
		// refund goes out before the status write: if it cannot be sent the
		// order stays CREATED instead of CANCELLED with the money kept.
		if err = o.send(ctx, log, saga.NewRefundCommand(order.UserID, order.ID)); err == nil {
			o.metrics.Compensation()
			err = o.finalize(ctx, log, order, orders.StatusCancelled)
		}
	}
	if err != nil {
		return err
	}

	if o.ledger != nil {
		if err := o.ledger.Mark(ctx, orderID, kind); err != nil {
			log.Warn().Err(err).Msg("could not record event in ledger")
		}
	}
	return nil
}

func (o *Orchestrator) send(ctx context.Context, log zerolog.Logger, cmd saga.Message) error {
	if err := o.pub.Publish(ctx, cmd); err != nil {
		return errors.Wrapf(err, "send %s", cmd.Kind())
	}
	log.Info().Stringer("command", cmd.Kind()).Msg("command sent")
	return nil
}

func (o *Orchestrator) finalize(ctx context.Context, log zerolog.Logger, order orders.PurchaseOrder, to orders.Status) error {
	if !orders.CanTransition(order.Status, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", order.Status, to)
	}
	changed, err := o.store.UpdateStatus(ctx, order.ID, order.Status, to, o.clock.Now())
	if err != nil {
		return errors.Wrapf(err, "update order %s to %s", order.ID, to)
	}
	if !changed {
		log.Info().Str("status", string(to)).Msg("order status moved concurrently, nothing to do")
		return nil
	}
	o.metrics.Finalized(string(to))

	order.Status = to
	// the status notice is informational; the saga is already decided.
	if err := o.pub.Publish(ctx, order.Event()); err != nil {
		log.Warn().Err(err).Msg("could not publish final order status")
	}
	log.Info().Str("status", string(to)).Msg("order finalized")
	return nil
}
