package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is one charge attempt against an order. At most one row exists per
// idempotency key; the pending row is written before the gateway is called so
// a crash between charge and record cannot lose the key.
type Payment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	IdempotencyKey string
	Amount         decimal.Decimal
	Status         PaymentStatus
	Method         string
	TransactionID  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AmountTolerance is the cent-level slack allowed between a caller-supplied
// amount and the stored order total.
var AmountTolerance = decimal.NewFromFloat(0.01)
