package memory

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-saga-orders/internal/payment"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// PaymentStore serializes every WithTx on one mutex, which stands in for the
// row locks of the Postgres store. Writes made inside a transaction are staged
// and only become visible when the callback returns nil.
type PaymentStore struct {
	mu       sync.Mutex
	balances *xsync.MapOf[int, payment.UserBalance]
	txns     *xsync.MapOf[uuid.UUID, payment.Transaction]

	auditMu sync.Mutex
	audit   []payment.AuditEntry

	staged *paymentTx
}

type paymentTx struct {
	balances map[int]payment.UserBalance
	txns     map[uuid.UUID]payment.Transaction
	audit    []payment.AuditEntry
}

func NewPaymentStore(balances ...payment.UserBalance) *PaymentStore {
	s := &PaymentStore{
		balances: xsync.NewMapOf[int, payment.UserBalance](),
		txns:     xsync.NewMapOf[uuid.UUID, payment.Transaction](),
	}
	for _, b := range balances {
		s.balances.Store(b.UserID, b)
	}
	return s
}

func (s *PaymentStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx, s) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = &paymentTx{
		balances: map[int]payment.UserBalance{},
		txns:     map[uuid.UUID]payment.Transaction{},
	}
	defer func() { s.staged = nil }()

	if err := fn(withOwner(ctx, s)); err != nil {
		return err
	}
	for k, v := range s.staged.balances {
		s.balances.Store(k, v)
	}
	for k, v := range s.staged.txns {
		s.txns.Store(k, v)
	}
	s.auditMu.Lock()
	s.audit = append(s.audit, s.staged.audit...)
	s.auditMu.Unlock()
	return nil
}

func (s *PaymentStore) GetBalance(_ context.Context, userID int) (payment.UserBalance, error) {
	b, ok := s.balances.Load(userID)
	if !ok {
		return payment.UserBalance{}, payment.ErrBalanceNotFound
	}
	return b, nil
}

func (s *PaymentStore) GetBalanceForUpdate(ctx context.Context, userID int) (payment.UserBalance, error) {
	if inTx(ctx, s) {
		if b, ok := s.staged.balances[userID]; ok {
			return b, nil
		}
	}
	return s.GetBalance(ctx, userID)
}

func (s *PaymentStore) UpdateBalance(ctx context.Context, b payment.UserBalance) error {
	if inTx(ctx, s) {
		s.staged.balances[b.UserID] = b
		return nil
	}
	s.balances.Store(b.UserID, b)
	return nil
}

func (s *PaymentStore) GetTransactionForUpdate(ctx context.Context, orderID uuid.UUID) (payment.Transaction, error) {
	if inTx(ctx, s) {
		if t, ok := s.staged.txns[orderID]; ok {
			return t, nil
		}
	}
	t, ok := s.txns.Load(orderID)
	if !ok {
		return payment.Transaction{}, payment.ErrTransactionNotFound
	}
	return t, nil
}

func (s *PaymentStore) SaveTransaction(ctx context.Context, t payment.Transaction) error {
	if inTx(ctx, s) {
		s.staged.txns[t.OrderID] = t
		return nil
	}
	s.txns.Store(t.OrderID, t)
	return nil
}

func (s *PaymentStore) AppendAudit(ctx context.Context, e payment.AuditEntry) error {
	if inTx(ctx, s) {
		s.staged.audit = append(s.staged.audit, e)
		return nil
	}
	s.auditMu.Lock()
	s.audit = append(s.audit, e)
	s.auditMu.Unlock()
	return nil
}

// Audit returns a copy of the audit log.
func (s *PaymentStore) Audit() []payment.AuditEntry {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	return append([]payment.AuditEntry(nil), s.audit...)
}
