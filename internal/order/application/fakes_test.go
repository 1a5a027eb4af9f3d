package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeRepo struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]domain.Order
	payments map[string]domain.Payment

	createOrderErr error
	addItemsErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:   map[uuid.UUID]domain.Order{},
		payments: map[string]domain.Payment{},
	}
}

func (r *fakeRepo) CreateOrder(_ context.Context, o domain.Order) error {
	if r.createOrderErr != nil {
		return r.createOrderErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *fakeRepo) AddItems(_ context.Context, orderID uuid.UUID, items []domain.OrderItem) error {
	if r.addItemsErr != nil {
		return r.addItemsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[orderID]
	o.Items = items
	r.orders[orderID] = o
	return nil
}

func (r *fakeRepo) GetOrder(_ context.Context, id uuid.UUID) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertPendingPayment(_ context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.payments[p.IdempotencyKey]; exists {
		return domain.ErrPaymentConflict
	}
	r.payments[p.IdempotencyKey] = p
	return nil
}

func (r *fakeRepo) PaymentByIdempotencyKey(_ context.Context, key string) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[key]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (r *fakeRepo) MarkPaymentSucceeded(_ context.Context, paymentID uuid.UUID, orderID uuid.UUID, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.payments {
		if p.ID == paymentID {
			p.Status = domain.PaymentSucceeded
			p.TransactionID = &transactionID
			r.payments[key] = p
			o := r.orders[orderID]
			o.Status = domain.StatusPaid
			r.orders[orderID] = o
			return nil
		}
	}
	return domain.ErrPaymentNotFound
}

func (r *fakeRepo) MarkPaymentFailed(_ context.Context, paymentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, p := range r.payments {
		if p.ID == paymentID {
			p.Status = domain.PaymentFailed
			r.payments[key] = p
			return nil
		}
	}
	return domain.ErrPaymentNotFound
}

func (r *fakeRepo) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, to domain.OrderStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if o.Status != to {
		if !domain.CanTransition(o.Status, to) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, to)
		}
		o.Status = to
		r.orders[orderID] = o
	}
	return o, nil
}

type reserveCall struct {
	ProductID string
	Quantity  int
	OrderID   string
}

// fakeInventory validates carts from a fixed catalog and records every
// reserve/release call. failReserveAt makes the nth reservation (1-based)
// fail; failReleaseOf makes releases of one product fail.
type fakeInventory struct {
	mu       sync.Mutex
	catalog  map[string]ValidatedItem
	reserves []reserveCall
	releases []reserveCall

	validateErr   error
	failReserveAt int
	failReleaseOf string
}

func newFakeInventory(items ...ValidatedItem) *fakeInventory {
	inv := &fakeInventory{catalog: map[string]ValidatedItem{}}
	for _, it := range items {
		inv.catalog[it.ProductID] = it
	}
	return inv
}

func (f *fakeInventory) ValidateCart(_ context.Context, items []CartItem, _ string) ([]ValidatedItem, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	out := make([]ValidatedItem, 0, len(items))
	for _, ci := range items {
		v, ok := f.catalog[ci.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", ci.ProductID, domain.ErrValidation)
		}
		v.Quantity = ci.Quantity
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeInventory) Reserve(_ context.Context, productID string, quantity int, orderID string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReserveAt > 0 && len(f.reserves)+1 == f.failReserveAt {
		return fmt.Errorf("insufficient stock for %s: %w", productID, domain.ErrReservation)
	}
	f.reserves = append(f.reserves, reserveCall{ProductID: productID, Quantity: quantity, OrderID: orderID})
	return nil
}

func (f *fakeInventory) Release(_ context.Context, productID string, quantity int, orderID string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReleaseOf == productID {
		return errors.New("inventory unreachable")
	}
	f.releases = append(f.releases, reserveCall{ProductID: productID, Quantity: quantity, OrderID: orderID})
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	charges int
	status  string
	err     error
}

func (g *fakeGateway) Charge(_ context.Context, orderID uuid.UUID, _ decimal.Decimal, _ string) (ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges++
	if g.err != nil {
		return ChargeResult{}, g.err
	}
	if g.status != "" && g.status != ChargeSucceeded {
		return ChargeResult{Status: g.status}, nil
	}
	return ChargeResult{TransactionID: "txn-" + orderID.String(), Status: ChargeSucceeded}, nil
}

func (g *fakeGateway) Refund(_ context.Context, transactionID string, _ decimal.Decimal) (RefundResult, error) {
	return RefundResult{RefundID: "refund-" + transactionID, TransactionID: transactionID, Status: ChargeSucceeded}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, messageType string, _ domain.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, messageType)
	return nil
}
