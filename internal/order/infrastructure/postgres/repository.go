package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// CreateOrder writes the order row and its creation history entry. It runs in
// its own transaction so the order id is durable before any reservation call.
func (r *Repository) CreateOrder(ctx context.Context, o domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, user_id, status, total, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.UserID, o.Status, o.Total, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO order_status_history (order_id, from_status, to_status, changed_at)
		VALUES ($1,$2,$3,$4)`,
		o.ID, o.Status, o.Status, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) AddItems(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`INSERT INTO order_items (id, order_id, product_id, sku, quantity, price)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, orderID, item.ProductID, item.SKU, item.Quantity, item.Price)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, status, total, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	o.Items, err = r.itemsFor(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, status, total, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, sku, quantity, price
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SKU, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) InsertPendingPayment(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments (id, order_id, idempotency_key, amount, status, method, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.OrderID, p.IdempotencyKey, p.Amount, p.Status, p.Method, p.CreatedAt, p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrPaymentConflict
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *Repository) PaymentByIdempotencyKey(ctx context.Context, key string) (domain.Payment, error) {
	var p domain.Payment
	err := r.pool.QueryRow(ctx, `SELECT id, order_id, idempotency_key, amount, status, method, transaction_id, created_at, updated_at
		FROM payments WHERE idempotency_key=$1`, key).
		Scan(&p.ID, &p.OrderID, &p.IdempotencyKey, &p.Amount, &p.Status, &p.Method, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	return p, nil
}

// MarkPaymentSucceeded records the gateway transaction and moves the order to
// paid in one transaction. A crash cannot leave a succeeded payment on an
// unpaid order.
func (r *Repository) MarkPaymentSucceeded(ctx context.Context, paymentID uuid.UUID, orderID uuid.UUID, transactionID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `UPDATE payments SET status=$1, transaction_id=$2, updated_at=$3
		WHERE id=$4 AND status=$5`,
		domain.PaymentSucceeded, transactionID, now, paymentID, domain.PaymentPending)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}

	var current domain.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}

	if current != domain.StatusPaid {
		if !domain.CanTransition(current, domain.StatusPaid) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, domain.StatusPaid)
		}
		_, err = tx.Exec(ctx, `UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`,
			domain.StatusPaid, now, orderID)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO order_status_history (order_id, from_status, to_status, changed_at)
			VALUES ($1,$2,$3,$4)`,
			orderID, current, domain.StatusPaid, now)
		if err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE payments SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		domain.PaymentFailed, time.Now().UTC(), paymentID, domain.PaymentPending)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// UpdateOrderStatus locks the order row, validates the transition and appends
// the history entry in one transaction. Identity transitions commit nothing.
func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var current domain.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order: %w", err)
	}

	if current != to {
		if !domain.CanTransition(current, to) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, to)
		}
		now := time.Now().UTC()
		_, err = tx.Exec(ctx, `UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`, to, now, orderID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("update order: %w", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO order_status_history (order_id, from_status, to_status, changed_at)
			VALUES ($1,$2,$3,$4)`, orderID, current, to, now)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert status history: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return r.GetOrder(ctx, orderID)
}
