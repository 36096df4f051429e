package postgres

import (
	"context"

	"github.com/ariefcatur/go-saga-orders/internal/inventory"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type InventoryStore struct {
	conn
}

func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{conn{pool: pool}}
}

func (s *InventoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

func (s *InventoryStore) GetProduct(ctx context.Context, productID int) (inventory.Product, error) {
	return s.product(ctx, `SELECT id, stock FROM products WHERE id = $1`, productID)
}

// GetProductForUpdate locks the stock row; duplicate commands for one order
// and commands for other orders of the same product queue behind it.
func (s *InventoryStore) GetProductForUpdate(ctx context.Context, productID int) (inventory.Product, error) {
	return s.product(ctx, `SELECT id, stock FROM products WHERE id = $1 FOR UPDATE`, productID)
}

func (s *InventoryStore) product(ctx context.Context, sql string, productID int) (inventory.Product, error) {
	var p inventory.Product
	err := s.queryRow(ctx, sql, productID).Scan(&p.ProductID, &p.AvailableStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Product{}, inventory.ErrProductNotFound
	}
	return p, errors.Wrapf(err, "get product %d", productID)
}

func (s *InventoryStore) UpdateProduct(ctx context.Context, p inventory.Product) error {
	tag, err := s.exec(ctx, `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, p.ProductID, p.AvailableStock)
	if err != nil {
		return errors.Wrap(err, "update product")
	}
	if tag.RowsAffected() != 1 {
		return inventory.ErrProductNotFound
	}
	return nil
}

func (s *InventoryStore) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	rows, err := s.query(ctx, `SELECT id, stock FROM products ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var out []inventory.Product
	for rows.Next() {
		var p inventory.Product
		if err := rows.Scan(&p.ProductID, &p.AvailableStock); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "list products")
}

func (s *InventoryStore) GetReservation(ctx context.Context, orderID uuid.UUID) (inventory.Reservation, error) {
	var r inventory.Reservation
	var status string
	err := s.queryRow(ctx, `
SELECT order_id, product_id, user_id, status, created_at
FROM reservations WHERE order_id = $1`, orderID).
		Scan(&r.OrderID, &r.ProductID, &r.UserID, &status, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Reservation{}, inventory.ErrReservationNotFound
	}
	if err != nil {
		return inventory.Reservation{}, errors.Wrap(err, "get reservation")
	}
	r.Status = inventory.ReservationStatus(status)
	return r, nil
}

func (s *InventoryStore) SaveReservation(ctx context.Context, r inventory.Reservation) error {
	_, err := s.exec(ctx, `
INSERT INTO reservations (order_id, product_id, user_id, status, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (order_id) DO NOTHING`,
		r.OrderID, r.ProductID, r.UserID, string(r.Status), r.CreatedAt)
	return errors.Wrap(err, "save reservation")
}

// Seed inserts products that do not exist yet; existing stock is kept.
func (s *InventoryStore) Seed(ctx context.Context, products []inventory.Product) error {
	for _, p := range products {
		if _, err := s.exec(ctx, `
INSERT INTO products (id, stock) VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING`, p.ProductID, p.AvailableStock); err != nil {
			return errors.Wrapf(err, "seed product %d", p.ProductID)
		}
	}
	return nil
}
