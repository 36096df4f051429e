package redisx

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// StatusCache caches final order statuses for the read side. CREATED is never
// cached because it is about to change.
type StatusCache struct {
	rdb *redis.Client
}

func NewStatusCache(rdb *redis.Client) *StatusCache {
	return &StatusCache{rdb: rdb}
}

func statusKey(id uuid.UUID) string { return fmt.Sprintf(KeyOrderStatus, id) }

func (c *StatusCache) Get(ctx context.Context, id uuid.UUID) (orders.Status, bool, error) {
	s, err := c.rdb.Get(ctx, statusKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "status cache get")
	}
	return orders.Status(s), true, nil
}

func (c *StatusCache) Put(ctx context.Context, id uuid.UUID, s orders.Status) error {
	if !s.Terminal() {
		return nil
	}
	return errors.Wrap(c.rdb.Set(ctx, statusKey(id), string(s), TTLStatusCache).Err(), "status cache put")
}
