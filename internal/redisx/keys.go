package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> status
	KeyOrderStatus = "order_status:%s"

	// Processed saga events: dedup:{service}:{order_id}:{kind}
	KeyDedup = "dedup:%s:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
