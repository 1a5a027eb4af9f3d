package application

import (
	"context"

	"github.com/pratyushm21/ecommerce-saga/internal/inventory/domain"
)

// StockRepository is the persistence port for stock arithmetic. The mutating
// methods run under row locks so concurrent settlements cannot interleave.
type StockRepository interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	GetProducts(ctx context.Context, productIDs []string) ([]domain.Product, error)

	// ReserveStock holds qty units for an order. Fails with
	// domain.ErrInsufficientStock when available stock is short.
	ReserveStock(ctx context.Context, productID string, qty int) error

	// ReleaseStock returns reserved units to the available pool. The reserved
	// counter is clamped at zero; an unknown product is a no-op.
	ReleaseStock(ctx context.Context, productID string, qty int) error

	// CommitStock finalizes a sale: both stock and reserved drop by qty.
	CommitStock(ctx context.Context, productID string, qty int) error
}
