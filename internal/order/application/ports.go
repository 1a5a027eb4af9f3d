package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
)

// CartItem is the caller's view of a line: an opaque product reference plus a
// quantity. Prices come from cart validation, never from the caller.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ValidatedItem is a cart line enriched by the inventory service with the SKU
// and the current price, which becomes the order's price snapshot.
type ValidatedItem struct {
	ProductID string
	SKU       string
	Quantity  int
	Price     decimal.Decimal
}

type OrderRepository interface {
	// CreateOrder durably persists the order row (status pending, no items)
	// and its creation history entry. It commits on its own so the order id
	// survives reservation failures.
	CreateOrder(ctx context.Context, o domain.Order) error

	// AddItems persists all items in one transaction. Items become durable
	// together or not at all.
	AddItems(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) error

	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)

	// InsertPendingPayment writes the pending payment row under the unique
	// idempotency key. A key collision returns domain.ErrPaymentConflict.
	InsertPendingPayment(ctx context.Context, p domain.Payment) error
	PaymentByIdempotencyKey(ctx context.Context, key string) (domain.Payment, error)

	// MarkPaymentSucceeded flips the payment to succeeded with the gateway
	// transaction id and transitions the order to paid, atomically.
	MarkPaymentSucceeded(ctx context.Context, paymentID uuid.UUID, orderID uuid.UUID, transactionID string) error
	MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID) error

	// UpdateOrderStatus applies a state-machine transition and appends the
	// history row in one transaction. Identity transitions are a no-op.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (domain.Order, error)
}

type InventoryClient interface {
	ValidateCart(ctx context.Context, items []CartItem, token string) ([]ValidatedItem, error)
	Reserve(ctx context.Context, productID string, quantity int, orderID string, token string) error
	// Release is the compensating call. The orchestrator issues it at most
	// once per successfully reserved item per saga attempt.
	Release(ctx context.Context, productID string, quantity int, orderID string, token string) error
}

type ChargeResult struct {
	TransactionID string
	Status        string
}

type RefundResult struct {
	RefundID      string
	TransactionID string
	Status        string
}

const ChargeSucceeded = "succeeded"

type PaymentGateway interface {
	// Charge attempts the payment. A non-nil error means the gateway was
	// unreachable; a result with Status != ChargeSucceeded is a decline.
	Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, method string) (ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (RefundResult, error)
}

// EventPublisher emits lifecycle events after local commits. Publishing is
// best-effort: the orchestrator logs failures and never unwinds a committed
// transaction because of them.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, messageType string, o domain.Order) error
}
