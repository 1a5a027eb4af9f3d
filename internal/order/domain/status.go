package domain

import "fmt"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPaid       OrderStatus = "paid"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// validNext holds the allowed-set per status. DELIVERED and CANCELLED are
// terminal; an identity transition is a no-op success everywhere.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:    {StatusConfirmed: true, StatusPaid: true, StatusCancelled: true},
	StatusConfirmed:  {StatusPaid: true, StatusShipped: true, StatusCancelled: true},
	StatusPaid:       {StatusProcessing: true},
	StatusProcessing: {StatusShipped: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validNext[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransition reports whether from→to is an edge of the state machine.
// Identity is always allowed.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	return validNext[from][to]
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(s OrderStatus) bool {
	return len(validNext[s]) == 0
}
