package domain

import "errors"

// Error kinds surfaced by the saga. The HTTP layer maps each kind to a
// status code; compensation failures are never wrapped into these, they are
// logged and the triggering error is what propagates.
var (
	// ErrValidation covers bad cart contents: unknown product, inactive
	// product, non-positive quantity. No state is created.
	ErrValidation = errors.New("cart validation failed")

	// ErrReservation means the inventory service refused a reservation;
	// previously reserved items of the same attempt have been released.
	ErrReservation = errors.New("inventory reservation failed")

	// ErrPaymentFailed means the gateway declined the charge. The idempotency
	// key is permanently bound to the failed attempt.
	ErrPaymentFailed = errors.New("payment declined")

	// ErrAmountMismatch means the caller-supplied amount differs from the
	// stored order total by more than the cent tolerance.
	ErrAmountMismatch = errors.New("payment amount does not match order total")

	// ErrInvalidTransition means the requested status change is not an edge
	// of the order state machine.
	ErrInvalidTransition = errors.New("invalid order status transition")

	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentConflict signals a concurrent insert under the same
	// idempotency key; callers re-read and return the stored attempt.
	ErrPaymentConflict = errors.New("payment already exists for idempotency key")
)
