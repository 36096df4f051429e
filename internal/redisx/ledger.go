package redisx

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/saga"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Ledger records handled (order, kind) pairs under dedup keys that expire
// after TTLDedup, long after any redelivery could still arrive.
type Ledger struct {
	rdb     *redis.Client
	service string
}

func NewLedger(rdb *redis.Client, service string) *Ledger {
	return &Ledger{rdb: rdb, service: service}
}

func (l *Ledger) key(orderID uuid.UUID, kind saga.Kind) string {
	return fmt.Sprintf(KeyDedup, l.service, orderID, kind)
}

func (l *Ledger) Seen(ctx context.Context, orderID uuid.UUID, kind saga.Kind) (bool, error) {
	ok, err := Exists(ctx, l.rdb, l.key(orderID, kind))
	return ok, errors.Wrap(err, "ledger lookup")
}

func (l *Ledger) Mark(ctx context.Context, orderID uuid.UUID, kind saga.Kind) error {
	return errors.Wrap(l.rdb.Set(ctx, l.key(orderID, kind), 1, TTLDedup).Err(), "ledger mark")
}
