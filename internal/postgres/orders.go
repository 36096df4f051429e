package postgres

import (
	"context"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type OrderStore struct {
	conn
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{conn{pool: pool}}
}

const orderColumns = `id, user_id, product_id, price, status, created_at, updated_at`

func (s *OrderStore) Create(ctx context.Context, o orders.PurchaseOrder) error {
	_, err := s.exec(ctx, `
INSERT INTO purchase_orders (`+orderColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.UserID, o.ProductID, o.Price, string(o.Status), o.CreatedAt, o.UpdatedAt)
	return errors.Wrap(err, "insert order")
}

func (s *OrderStore) Get(ctx context.Context, id uuid.UUID) (orders.PurchaseOrder, error) {
	o, err := scanOrder(s.queryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.PurchaseOrder{}, orders.ErrOrderNotFound
	}
	return o, errors.Wrap(err, "get order")
}

func (s *OrderStore) List(ctx context.Context) ([]orders.PurchaseOrder, error) {
	return s.list(ctx, `SELECT `+orderColumns+` FROM purchase_orders ORDER BY created_at`)
}

// UpdateStatus is a compare-and-set on the status column.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to orders.Status, at time.Time) (bool, error) {
	tag, err := s.exec(ctx, `
UPDATE purchase_orders SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at)
	if err != nil {
		return false, errors.Wrap(err, "update order status")
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// tell "moved by someone else" apart from "no such order"
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *OrderStore) ListStalled(ctx context.Context, createdBefore time.Time) ([]orders.PurchaseOrder, error) {
	return s.list(ctx, `
SELECT `+orderColumns+` FROM purchase_orders
WHERE status = 'CREATED' AND created_at < $1
ORDER BY created_at`, createdBefore)
}

func (s *OrderStore) list(ctx context.Context, sql string, args ...any) ([]orders.PurchaseOrder, error) {
	rows, err := s.query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []orders.PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "list orders")
}

func scanOrder(row pgx.Row) (orders.PurchaseOrder, error) {
	var o orders.PurchaseOrder
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.Price, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return orders.PurchaseOrder{}, err
	}
	o.Status = orders.Status(status)
	return o, nil
}
