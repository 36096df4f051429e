package payment

import (
	"context"

	"github.com/google/uuid"
)

// Store is the payment participant's persistence. Rows read with a ForUpdate
// method stay locked until the WithTx callback returns, which serializes
// read-check-write per user and per order.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetBalance(ctx context.Context, userID int) (UserBalance, error)
	GetBalanceForUpdate(ctx context.Context, userID int) (UserBalance, error)
	UpdateBalance(ctx context.Context, b UserBalance) error

	GetTransactionForUpdate(ctx context.Context, orderID uuid.UUID) (Transaction, error)
	// SaveTransaction inserts or replaces the transaction of t.OrderID.
	SaveTransaction(ctx context.Context, t Transaction) error

	AppendAudit(ctx context.Context, e AuditEntry) error
}
