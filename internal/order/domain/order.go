package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Status    OrderStatus
	Total     decimal.Decimal
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem captures the product reference and the price at order-creation
// time. The price is a snapshot, never re-read from the catalog.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID string
	SKU       string
	Quantity  int
	Price     decimal.Decimal
}

// LineTotal is quantity × unit price in exact decimal arithmetic.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal sums line totals. Monetary sums never touch binary floats.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func NewOrder(userID uuid.UUID, items []OrderItem) Order {
	now := time.Now().UTC()
	return Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    StatusPending,
		Total:     OrderTotal(items),
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StatusChange is one row of the time-ordered status history of an order.
type StatusChange struct {
	OrderID    uuid.UUID
	FromStatus OrderStatus
	ToStatus   OrderStatus
	ChangedAt  time.Time
}
