package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pratyushm21/ecommerce-saga/internal/inventory/domain"
)

type Service struct {
	log  *slog.Logger
	repo StockRepository
}

func NewService(log *slog.Logger, repo StockRepository) *Service {
	return &Service{log: log, repo: repo}
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PricedItem is a validated cart line with the catalog price attached.
type PricedItem struct {
	ProductID string
	SKU       string
	Quantity  int
	Price     decimal.Decimal
}

// ValidateCart checks that every line references an active product with
// enough available stock and returns the lines priced from the catalog.
func (s *Service) ValidateCart(ctx context.Context, lines []CartLine) ([]PricedItem, error) {
	if len(lines) == 0 {
		return nil, errors.New("empty cart")
	}

	out := make([]PricedItem, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			return nil, fmt.Errorf("invalid line %q qty %d", line.ProductID, line.Quantity)
		}
		p, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
		if !p.Active {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, domain.ErrProductInactive)
		}
		if p.Available() < line.Quantity {
			return nil, fmt.Errorf("product %s has %d available, want %d: %w",
				line.ProductID, p.Available(), line.Quantity, domain.ErrInsufficientStock)
		}
		out = append(out, PricedItem{
			ProductID: p.ID,
			SKU:       p.SKU,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
	}
	return out, nil
}

func (s *Service) Reserve(ctx context.Context, productID string, qty int, orderID string) error {
	if qty <= 0 {
		return fmt.Errorf("reserve qty %d for %s", qty, productID)
	}
	if err := s.repo.ReserveStock(ctx, productID, qty); err != nil {
		return err
	}
	s.log.Info("stock reserved", "product_id", productID, "qty", qty, "order_id", orderID)
	return nil
}

func (s *Service) Release(ctx context.Context, productID string, qty int, orderID string) error {
	if qty <= 0 {
		return fmt.Errorf("release qty %d for %s", qty, productID)
	}
	if err := s.repo.ReleaseStock(ctx, productID, qty); err != nil {
		return err
	}
	s.log.Info("stock released", "product_id", productID, "qty", qty, "order_id", orderID)
	return nil
}

// SettlementItem is one order line arriving through a lifecycle event.
type SettlementItem struct {
	ProductID string
	Quantity  int
}

// CommitOrder finalizes the stock deduction for a completed order. Items are
// settled independently; the call fails only when nothing could be processed.
func (s *Service) CommitOrder(ctx context.Context, orderID string, items []SettlementItem) error {
	return s.settle(ctx, orderID, items, "commit", s.repo.CommitStock)
}

// ReleaseOrder returns the reservations of a cancelled order to the pool.
func (s *Service) ReleaseOrder(ctx context.Context, orderID string, items []SettlementItem) error {
	return s.settle(ctx, orderID, items, "release", s.repo.ReleaseStock)
}

func (s *Service) settle(ctx context.Context, orderID string, items []SettlementItem, op string, apply func(context.Context, string, int) error) error {
	if len(items) == 0 {
		return fmt.Errorf("%s order %s: no items", op, orderID)
	}

	processed := 0
	var errs []error
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			s.log.Warn("skipping invalid settlement item",
				"order_id", orderID, "op", op, "product_id", it.ProductID, "qty", it.Quantity)
			continue
		}
		if err := apply(ctx, it.ProductID, it.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("%s product %s: %w", op, it.ProductID, err))
			s.log.Error("settlement item failed",
				"order_id", orderID, "op", op, "product_id", it.ProductID, "qty", it.Quantity, "err", err)
			continue
		}
		processed++
	}

	if len(errs) > 0 && processed == 0 {
		return fmt.Errorf("%s order %s: %w", op, orderID, errors.Join(errs...))
	}
	if len(errs) > 0 {
		s.log.Warn("partial settlement", "order_id", orderID, "op", op, "processed", processed, "failed", len(errs))
	}
	return nil
}
