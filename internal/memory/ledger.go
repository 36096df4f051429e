package memory

import (
	"context"

	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

type ledgerKey struct {
	order uuid.UUID
	kind  saga.Kind
}

// Ledger is the processed-event ledger kept in process memory.
type Ledger struct {
	m *xsync.MapOf[ledgerKey, struct{}]
}

func NewLedger() *Ledger {
	return &Ledger{m: xsync.NewMapOf[ledgerKey, struct{}]()}
}

func (l *Ledger) Seen(_ context.Context, orderID uuid.UUID, kind saga.Kind) (bool, error) {
	_, ok := l.m.Load(ledgerKey{orderID, kind})
	return ok, nil
}

func (l *Ledger) Mark(_ context.Context, orderID uuid.UUID, kind saga.Kind) error {
	l.m.Store(ledgerKey{orderID, kind}, struct{}{})
	return nil
}
