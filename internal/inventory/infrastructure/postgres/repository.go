package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratyushm21/ecommerce-saga/internal/inventory/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const productColumns = `id, sku, name, price, stock, reserved_stock, active`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.ReservedStock, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, productID)
	return scanProduct(row)
}

func (r *Repository) GetProducts(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReserveStock holds qty units under a row lock. The availability check and
// the counter bump see the same row version.
func (r *Repository) ReserveStock(ctx context.Context, productID string, qty int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var stock, reserved int
	var active bool
	err = tx.QueryRow(ctx, `SELECT stock, reserved_stock, active FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&stock, &reserved, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}
	if !active {
		return domain.ErrProductInactive
	}
	if stock-reserved < qty {
		return fmt.Errorf("product %s has %d available, want %d: %w",
			productID, stock-reserved, qty, domain.ErrInsufficientStock)
	}

	_, err = tx.Exec(ctx, `UPDATE products SET reserved_stock = reserved_stock + $2, updated_at = now() WHERE id=$1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("update reserved stock: %w", err)
	}

	return tx.Commit(ctx)
}

// ReleaseStock returns qty reserved units to the pool, clamping the counter
// at zero. An unknown product is a no-op.
func (r *Repository) ReleaseStock(ctx context.Context, productID string, qty int) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products
		SET reserved_stock = GREATEST(reserved_stock - $2, 0), updated_at = now()
		WHERE id=$1`, productID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.log.Warn("release for unknown product", "product_id", productID, "qty", qty)
	}
	return nil
}

// CommitStock finalizes a sale: both the physical stock and the reservation
// drop by qty.
func (r *Repository) CommitStock(ctx context.Context, productID string, qty int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}
	if stock < qty {
		return fmt.Errorf("product %s has %d in stock, commit %d: %w",
			productID, stock, qty, domain.ErrInsufficientStock)
	}

	_, err = tx.Exec(ctx, `UPDATE products
		SET stock = stock - $2, reserved_stock = GREATEST(reserved_stock - $2, 0), updated_at = now()
		WHERE id=$1`, productID, qty)
	if err != nil {
		return fmt.Errorf("commit stock: %w", err)
	}

	return tx.Commit(ctx)
}

// EnsureSchema creates the products table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL,
		stock INT NOT NULL CHECK (stock >= 0),
		reserved_stock INT NOT NULL DEFAULT 0 CHECK (reserved_stock >= 0),
		active BOOLEAN NOT NULL DEFAULT true,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
