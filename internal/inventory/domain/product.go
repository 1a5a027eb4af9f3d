package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product inactive")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is the inventory-side view of a catalog entry. ReservedStock counts
// units held for pending orders; Available() is what new reservations can take.
type Product struct {
	ID            string
	SKU           string
	Name          string
	Price         decimal.Decimal
	Stock         int
	ReservedStock int
	Active        bool
}

func (p Product) Available() int {
	return p.Stock - p.ReservedStock
}
