package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys of the order lifecycle events on the bus. Created and paid are
// published by this service; completed and cancelled arrive from downstream
// services and drive inventory settlement.
const (
	MessageOrderCreated   = "order.created"
	MessageOrderPaid      = "order.paid"
	MessageOrderUpdated   = "order.updated"
	MessageOrderCompleted = "order.completed"
	MessageOrderCancelled = "order.cancelled"
)

// OrderMessage is the envelope every order lifecycle event carries.
type OrderMessage struct {
	MessageID     string          `json:"message_id"`
	MessageType   string          `json:"message_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []MessageItem   `json:"items"`
}

type MessageItem struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
