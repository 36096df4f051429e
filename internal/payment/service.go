package payment

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/clock"
	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
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

// HandleCommand is installed as the payment-commands consumer handler.
func (s *Service) HandleCommand(ctx context.Context, msg saga.Message) error {
	cmd, ok := msg.(saga.PaymentCommand)
	if !ok {
		return errors.Wrapf(saga.ErrUnexpectedMessage, "payment got %s", msg.Kind())
	}
	switch cmd.Kind() {
	case saga.KindProcessPayment:
		_, err := s.ProcessPayment(ctx, cmd)
		return err
	case saga.KindRefundPayment:
		return s.RefundPayment(ctx, cmd.UserID, cmd.OrderID)
	default:
		return errors.Wrapf(saga.ErrUnexpectedMessage, "payment got %s", cmd.Kind())
	}
}

// ProcessPayment debits the user when the balance covers the amount and records
// the outcome. Insufficient or missing balance is a PAYMENT_FAILED event, not an error.
func (s *Service) ProcessPayment(ctx context.Context, cmd saga.PaymentCommand) (saga.PaymentEvent, error) {
	if cmd.Amount <= 0 {
		return saga.PaymentEvent{}, ErrInvalidAmount
	}

	var ev saga.PaymentEvent
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		// balance row first, then the transaction: the same lock order as refunds.
		bal, balErr := s.store.GetBalanceForUpdate(ctx, cmd.UserID)
		if balErr != nil && !errors.Is(balErr, ErrBalanceNotFound) {
			return balErr
		}

		existing, err := s.store.GetTransactionForUpdate(ctx, cmd.OrderID)
		switch {
		case err == nil:
			ev = replay(existing)
			s.log.Warn().
				Str("order_id", cmd.OrderID.String()).
				Str("status", string(existing.Status)).
				Msg("payment command redelivered, replaying recorded outcome")
			return nil
		case !errors.Is(err, ErrTransactionNotFound):
			return err
		}

		now := s.clock.Now()
		txn := Transaction{
			OrderID:   cmd.OrderID,
			UserID:    cmd.UserID,
			Amount:    cmd.Amount,
			CreatedAt: now,
			UpdatedAt: now,
		}
		audit := AuditEntry{OrderID: cmd.OrderID, At: now}

		if balErr == nil && bal.Balance >= cmd.Amount {
			bal.Balance -= cmd.Amount
			if err := s.store.UpdateBalance(ctx, bal); err != nil {
				return err
			}
			txn.Status = TxApproved
			audit.Severity = SeverityInfo
			audit.Message = fmt.Sprintf("payment approved: %.2f debited from user %d", cmd.Amount, cmd.UserID)
			ev = cmd.Completed()
		} else {
			txn.Status = TxRejected
			audit.Severity = SeverityWarn
			audit.Message = fmt.Sprintf("payment rejected: user %d cannot cover %.2f", cmd.UserID, cmd.Amount)
			ev = cmd.Failed()
		}

		if err := s.store.SaveTransaction(ctx, txn); err != nil {
			return err
		}
		return s.store.AppendAudit(ctx, audit)
	})
	if err != nil {
		return saga.PaymentEvent{}, errors.Wrapf(err, "process payment for order %s", cmd.OrderID)
	}

	if err := s.pub.Publish(ctx, ev); err != nil {
		return ev, errors.Wrapf(err, "publish %s for order %s", ev.Kind(), cmd.OrderID)
	}
	s.log.Info().
		Str("order_id", cmd.OrderID.String()).
		Int("user_id", cmd.UserID).
		Float64("amount", cmd.Amount).
		Stringer("outcome", ev.Kind()).
		Msg("payment processed")
	return ev, nil
}

// RefundPayment credits back an APPROVED transaction and marks it REFUNDED.
// Missing, REJECTED and already REFUNDED transactions are left alone, so a
// redelivered refund is a no-op.
func (s *Service) RefundPayment(ctx context.Context, userID int, orderID uuid.UUID) error {
	log := s.log.With().Str("order_id", orderID.String()).Int("user_id", userID).Logger()

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		bal, balErr := s.store.GetBalanceForUpdate(ctx, userID)
		if balErr != nil && !errors.Is(balErr, ErrBalanceNotFound) {
			return balErr
		}

		txn, err := s.store.GetTransactionForUpdate(ctx, orderID)
		if errors.Is(err, ErrTransactionNotFound) {
			log.Info().Msg("refund skipped: no payment for order")
			return nil
		}
		if err != nil {
			return err
		}
		if txn.Status != TxApproved {
			log.Info().Str("status", string(txn.Status)).Msg("refund skipped: payment not approved")
			return nil
		}
		if txn.UserID != userID {
			log.Warn().Int("payer", txn.UserID).Msg("refund skipped: user does not own payment")
			return nil
		}
		if balErr != nil {
			return errors.Wrapf(balErr, "refund user %d", userID)
		}

		now := s.clock.Now()
		bal.Balance += txn.Amount
		if err := s.store.UpdateBalance(ctx, bal); err != nil {
			return err
		}
		txn.Status = TxRefunded
		txn.UpdatedAt = now
		if err := s.store.SaveTransaction(ctx, txn); err != nil {
			return err
		}
		log.Info().Float64("amount", txn.Amount).Msg("payment refunded")
		return s.store.AppendAudit(ctx, AuditEntry{
			OrderID:  orderID,
			At:       now,
			Message:  fmt.Sprintf("payment refunded: %.2f credited to user %d", txn.Amount, userID),
			Severity: SeverityInfo,
		})
	})
	if err != nil {
		return errors.Wrapf(err, "refund payment for order %s", orderID)
	}
	return nil
}

func (s *Service) Balance(ctx context.Context, userID int) (UserBalance, error) {
	return s.store.GetBalance(ctx, userID)
}

// replay rebuilds the outcome event of a recorded transaction. A refunded
// payment was approved first, so it replays as completed.
func replay(t Transaction) saga.PaymentEvent {
	cmd := saga.PaymentCommand{UserID: t.UserID, OrderID: t.OrderID, Amount: t.Amount}
	if t.Status == TxRejected {
		return cmd.Failed()
	}
	return cmd.Completed()
}
