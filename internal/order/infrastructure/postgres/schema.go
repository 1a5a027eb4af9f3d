package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the order-side tables if they do not exist. Called once
// at startup before the pool is handed to the service.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			status TEXT NOT NULL,
			total NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			sku TEXT NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			price NUMERIC(12,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders (id),
			idempotency_key TEXT NOT NULL UNIQUE,
			amount NUMERIC(12,2) NOT NULL,
			status TEXT NOT NULL,
			method TEXT NOT NULL,
			transaction_id TEXT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments (order_id)`,
		`CREATE TABLE IF NOT EXISTS order_status_history (
			id BIGSERIAL PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
