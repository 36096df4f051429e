package postgres

import (
	"context"

	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PaymentStore struct {
	conn
}

func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{conn{pool: pool}}
}

func (s *PaymentStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

func (s *PaymentStore) GetBalance(ctx context.Context, userID int) (payment.UserBalance, error) {
	return s.balance(ctx, `SELECT user_id, balance FROM user_balances WHERE user_id = $1`, userID)
}

func (s *PaymentStore) GetBalanceForUpdate(ctx context.Context, userID int) (payment.UserBalance, error) {
	return s.balance(ctx, `SELECT user_id, balance FROM user_balances WHERE user_id = $1 FOR UPDATE`, userID)
}

func (s *PaymentStore) balance(ctx context.Context, sql string, userID int) (payment.UserBalance, error) {
	var b payment.UserBalance
	err := s.queryRow(ctx, sql, userID).Scan(&b.UserID, &b.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return payment.UserBalance{}, payment.ErrBalanceNotFound
	}
	return b, errors.Wrapf(err, "get balance of user %d", userID)
}

func (s *PaymentStore) UpdateBalance(ctx context.Context, b payment.UserBalance) error {
	tag, err := s.exec(ctx, `UPDATE user_balances SET balance = $2 WHERE user_id = $1`, b.UserID, b.Balance)
	if err != nil {
		return errors.Wrap(err, "update balance")
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrBalanceNotFound
	}
	return nil
}

func (s *PaymentStore) GetTransactionForUpdate(ctx context.Context, orderID uuid.UUID) (payment.Transaction, error) {
	var t payment.Transaction
	var status string
	err := s.queryRow(ctx, `
SELECT order_id, user_id, amount, status, created_at, updated_at
FROM payment_transactions
WHERE order_id = $1
FOR UPDATE`, orderID).
		Scan(&t.OrderID, &t.UserID, &t.Amount, &status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return payment.Transaction{}, payment.ErrTransactionNotFound
	}
	if err != nil {
		return payment.Transaction{}, errors.Wrap(err, "get payment transaction")
	}
	t.Status = payment.TxStatus(status)
	return t, nil
}

func (s *PaymentStore) SaveTransaction(ctx context.Context, t payment.Transaction) error {
	_, err := s.exec(ctx, `
INSERT INTO payment_transactions (order_id, user_id, amount, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (order_id) DO UPDATE
SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		t.OrderID, t.UserID, t.Amount, string(t.Status), t.CreatedAt, t.UpdatedAt)
	return errors.Wrap(err, "save payment transaction")
}

func (s *PaymentStore) AppendAudit(ctx context.Context, e payment.AuditEntry) error {
	_, err := s.exec(ctx, `
INSERT INTO payment_audit_log (order_id, occurred_at, message, severity)
VALUES ($1, $2, $3, $4)`,
		e.OrderID, e.At, e.Message, int(e.Severity))
	return errors.Wrap(err, "append payment audit")
}

// Seed inserts balances that do not exist yet; existing rows keep their value.
func (s *PaymentStore) Seed(ctx context.Context, balances []payment.UserBalance) error {
	for _, b := range balances {
		if _, err := s.exec(ctx, `
INSERT INTO user_balances (user_id, balance) VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING`, b.UserID, b.Balance); err != nil {
			return errors.Wrapf(err, "seed balance of user %d", b.UserID)
		}
	}
	return nil
}
