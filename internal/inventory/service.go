package inventory

import (
	"context"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Service struct {
	store Store
	pub   saga.Publisher
	clock clock.Clock
	log   zerolog.Logger
}

func NewService(store Store, pub saga.Publisher, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{store: store, pub: pub, clock: clk, log: log}
}

// HandleCommand is installed as the inventory-commands consumer handler.
func (s *Service) HandleCommand(ctx context.Context, msg saga.Message) error {
	cmd, ok := msg.(saga.InventoryCommand)
	if !ok {
		return errors.Wrapf(saga.ErrUnexpectedMessage, "inventory got %s", msg.Kind())
	}
	_, err := s.DeductInventory(ctx, cmd)
	return err
}

// DeductInventory takes one unit of the product when any is available.
// There is no release step: a rejection never touched the stock.
func (s *Service) DeductInventory(ctx context.Context, cmd saga.InventoryCommand) (saga.InventoryEvent, error) {
	var ev saga.InventoryEvent
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		// lock the product before looking at the reservation so duplicates of
		// one command queue up behind each other.
		p, prodErr := s.store.GetProductForUpdate(ctx, cmd.ProductID)
		if prodErr != nil && !errors.Is(prodErr, ErrProductNotFound) {
			return prodErr
		}

		// idempotent short-circuit: the order already went through this step.
		r, err := s.store.GetReservation(ctx, cmd.OrderID)
		switch {
		case err == nil:
			ev = replay(r)
			s.log.Warn().
				Str("order_id", cmd.OrderID.String()).
				Str("status", string(r.Status)).
				Msg("inventory command redelivered, replaying recorded outcome")
			return nil
		case !errors.Is(err, ErrReservationNotFound):
			return err
		}

		res := Reservation{
			OrderID:   cmd.OrderID,
			ProductID: cmd.ProductID,
			UserID:    cmd.UserID,
			CreatedAt: s.clock.Now(),
		}
		if prodErr == nil && p.AvailableStock > 0 {
			p.AvailableStock--
			if err := s.store.UpdateProduct(ctx, p); err != nil {
				return err
			}
			res.Status = ReservationReserved
			ev = cmd.Reserved()
		} else {
			res.Status = ReservationRejected
			ev = cmd.Rejected()
		}
		return s.store.SaveReservation(ctx, res)
	})
	if err != nil {
		return saga.InventoryEvent{}, errors.Wrapf(err, "deduct inventory for order %s", cmd.OrderID)
	}

	if err := s.pub.Publish(ctx, ev); err != nil {
		return ev, errors.Wrapf(err, "publish %s for order %s", ev.Kind(), cmd.OrderID)
	}

	l := s.log.Info()
	if ev.Kind() == saga.KindInventoryRejected {
		l = s.log.Warn()
	}
	l.Str("order_id", cmd.OrderID.String()).
		Int("product_id", cmd.ProductID).
		Stringer("outcome", ev.Kind()).
		Msg("inventory processed")
	return ev, nil
}

func (s *Service) Product(ctx context.Context, productID int) (Product, error) {
	return s.store.GetProduct(ctx, productID)
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	return s.store.ListProducts(ctx)
}

func replay(r Reservation) saga.InventoryEvent {
	cmd := saga.InventoryCommand{UserID: r.UserID, ProductID: r.ProductID, OrderID: r.OrderID}
	if r.Status == ReservationReserved {
		return cmd.Reserved()
	}
	return cmd.Rejected()
}
