package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
	"github.com/pratyushm21/ecommerce-saga/internal/platform/metrics"
)

// Service drives the order-creation and payment sagas. Each workflow is a
// sequence of local transactions and remote calls with an explicit undo list;
// there is no distributed transaction coordinator.
type Service struct {
	log       *slog.Logger
	repo      OrderRepository
	inventory InventoryClient
	gateway   PaymentGateway
	publisher EventPublisher
}

func NewService(log *slog.Logger, repo OrderRepository, inventory InventoryClient, gateway PaymentGateway, publisher EventPublisher) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		inventory: inventory,
		gateway:   gateway,
		publisher: publisher,
	}
}

// CreateOrder validates the cart, persists a pending order, reserves stock
// item by item in cart order, and commits items only when every reservation
// succeeded. On a reservation failure it releases exactly the items reserved
// so far and propagates the reservation error; the pending order row stays.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, cart []CartItem, token string) (domain.Order, error) {
	if len(cart) == 0 {
		metrics.OrdersFailed.WithLabelValues("validation").Inc()
		return domain.Order{}, fmt.Errorf("empty cart: %w", domain.ErrValidation)
	}
	for _, ci := range cart {
		if ci.ProductID == "" || ci.Quantity <= 0 {
			metrics.OrdersFailed.WithLabelValues("validation").Inc()
			return domain.Order{}, fmt.Errorf("item %q quantity %d: %w", ci.ProductID, ci.Quantity, domain.ErrValidation)
		}
	}

	validated, err := s.inventory.ValidateCart(ctx, cart, token)
	if err != nil {
		metrics.OrdersFailed.WithLabelValues("validation").Inc()
		return domain.Order{}, fmt.Errorf("inventory.ValidateCart: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(validated))
	for _, v := range validated {
		items = append(items, domain.OrderItem{
			ID:        uuid.New(),
			ProductID: v.ProductID,
			SKU:       v.SKU,
			Quantity:  v.Quantity,
			Price:     v.Price,
		})
	}

	order := domain.NewOrder(userID, items)
	for i := range items {
		items[i].OrderID = order.ID
	}

	// The order row commits on its own before any reservation so the id
	// exists for correlation even when the saga aborts. It is never deleted.
	pending := order
	pending.Items = nil
	if err := s.repo.CreateOrder(ctx, pending); err != nil {
		metrics.OrdersFailed.WithLabelValues("infrastructure").Inc()
		return domain.Order{}, fmt.Errorf("repo.CreateOrder: %w", err)
	}

	// Reservations run sequentially in cart order so the undo list is exact
	// and ordered.
	reserved := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		if err := s.inventory.Reserve(ctx, it.ProductID, it.Quantity, order.ID.String(), token); err != nil {
			s.releaseReserved(ctx, order.ID, reserved, token, err)
			metrics.OrdersFailed.WithLabelValues("reservation").Inc()
			return domain.Order{}, fmt.Errorf("inventory.Reserve product %s: %w", it.ProductID, err)
		}
		reserved = append(reserved, it)
	}

	if err := s.repo.AddItems(ctx, order.ID, items); err != nil {
		s.releaseReserved(ctx, order.ID, reserved, token, err)
		metrics.OrdersFailed.WithLabelValues("infrastructure").Inc()
		return domain.Order{}, fmt.Errorf("repo.AddItems: %w", err)
	}
	order.Items = items

	s.publish(ctx, domain.MessageOrderCreated, order)
	metrics.OrdersCreated.Inc()
	s.log.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.Total)
	return order, nil
}

// PaymentInput is the payment-processing request. Amount is optional; when
// set it must match the stored order total within the cent tolerance.
type PaymentInput struct {
	IdempotencyKey string
	Amount         *decimal.Decimal
	Method         string
	Token          string
}

type PaymentResult struct {
	PaymentID     uuid.UUID
	TransactionID string
	Status        domain.PaymentStatus
	Amount        decimal.Decimal
	OrderStatus   domain.OrderStatus
}

// ProcessPayment charges an order at most once per idempotency key. The
// pending payment row is committed before the gateway call so a crash between
// charge and record cannot lose the idempotency guarantee. A declined charge
// permanently binds the key to the failed attempt and triggers best-effort
// inventory compensation.
func (s *Service) ProcessPayment(ctx context.Context, orderID uuid.UUID, in PaymentInput) (PaymentResult, error) {
	if in.IdempotencyKey == "" {
		return PaymentResult{}, fmt.Errorf("missing idempotency key: %w", domain.ErrValidation)
	}

	// Idempotency check comes first: a replayed key returns the stored
	// attempt with zero side effects.
	if stored, err := s.repo.PaymentByIdempotencyKey(ctx, in.IdempotencyKey); err == nil {
		return s.storedResult(ctx, stored), nil
	} else if !errors.Is(err, domain.ErrPaymentNotFound) {
		return PaymentResult{}, fmt.Errorf("repo.PaymentByIdempotencyKey: %w", err)
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("repo.GetOrder: %w", err)
	}

	if order.Status == domain.StatusPaid || order.Status == domain.StatusCancelled {
		return PaymentResult{}, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrInvalidTransition)
	}

	amount := order.Total
	if in.Amount != nil {
		if in.Amount.Sub(order.Total).Abs().GreaterThan(domain.AmountTolerance) {
			return PaymentResult{}, fmt.Errorf("requested %s, order total %s: %w", in.Amount, order.Total, domain.ErrAmountMismatch)
		}
		amount = *in.Amount
	}
	method := in.Method
	if method == "" {
		method = "card"
	}

	now := time.Now().UTC()
	payment := domain.Payment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		IdempotencyKey: in.IdempotencyKey,
		Amount:         amount,
		Status:         domain.PaymentPending,
		Method:         method,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertPendingPayment(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrPaymentConflict) {
			// Lost a race with a concurrent retry of the same key.
			if stored, lookupErr := s.repo.PaymentByIdempotencyKey(ctx, in.IdempotencyKey); lookupErr == nil {
				return s.storedResult(ctx, stored), nil
			}
		}
		return PaymentResult{}, fmt.Errorf("repo.InsertPendingPayment: %w", err)
	}

	result, err := s.gateway.Charge(ctx, order.ID, amount, method)
	if err != nil {
		// Gateway unreachable: the pending row stays so the key survives a
		// retry; reserved inventory is released best-effort.
		metrics.Payments.WithLabelValues("error").Inc()
		s.compensateInventory(ctx, order, in.Token, err)
		return PaymentResult{}, fmt.Errorf("gateway.Charge: %w", err)
	}

	if result.Status == ChargeSucceeded {
		if err := s.repo.MarkPaymentSucceeded(ctx, payment.ID, order.ID, result.TransactionID); err != nil {
			return PaymentResult{}, fmt.Errorf("repo.MarkPaymentSucceeded: %w", err)
		}
		order.Status = domain.StatusPaid
		s.publish(ctx, domain.MessageOrderPaid, order)
		metrics.Payments.WithLabelValues("succeeded").Inc()
		s.log.Info("payment succeeded", "order_id", order.ID, "payment_id", payment.ID, "transaction_id", result.TransactionID)
		return PaymentResult{
			PaymentID:     payment.ID,
			TransactionID: result.TransactionID,
			Status:        domain.PaymentSucceeded,
			Amount:        amount,
			OrderStatus:   domain.StatusPaid,
		}, nil
	}

	// Declined. The failed row commits first so the key maps to this attempt
	// forever; retrying a declined payment requires a fresh key.
	if err := s.repo.MarkPaymentFailed(ctx, payment.ID); err != nil {
		s.log.Error("recording declined payment failed", "order_id", order.ID, "payment_id", payment.ID, "err", err)
	}
	metrics.Payments.WithLabelValues("failed").Inc()
	declineErr := fmt.Errorf("gateway returned %q for order %s: %w", result.Status, order.ID, domain.ErrPaymentFailed)
	s.compensateInventory(ctx, order, in.Token, declineErr)
	return PaymentResult{}, declineErr
}

// UpdateOrderStatus applies a state-machine transition and publishes
// order.updated. Same-status requests succeed without side effects.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (domain.Order, error) {
	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.GetOrder: %w", err)
	}
	if current.Status == to {
		return current, nil
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, orderID, to)
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.UpdateOrderStatus: %w", err)
	}

	s.publish(ctx, domain.MessageOrderUpdated, updated)
	s.log.Info("order status updated", "order_id", orderID, "from", current.Status, "to", to)
	return updated, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// releaseReserved walks the undo list in reservation order. Every release is
// attempted independently: one failed release must not block the rest. It
// never returns an error; failures are logged for manual reconciliation.
func (s *Service) releaseReserved(ctx context.Context, orderID uuid.UUID, reserved []domain.OrderItem, token string, cause error) {
	var failed []string
	for _, it := range reserved {
		if err := s.inventory.Release(ctx, it.ProductID, it.Quantity, orderID.String(), token); err != nil {
			metrics.CompensationReleaseFailures.Inc()
			failed = append(failed, it.ProductID)
			s.log.Error("compensating release failed",
				"order_id", orderID, "product_id", it.ProductID, "qty", it.Quantity, "err", err)
		}
	}
	if len(failed) > 0 {
		s.log.Error("manual review required: unreleased reservations",
			"order_id", orderID, "products", failed, "cause", cause)
	}
}

// compensateInventory releases every item on the order after a payment
// failure. Pure cleanup around the primary error; never raises.
func (s *Service) compensateInventory(ctx context.Context, order domain.Order, token string, cause error) {
	if order.Status == domain.StatusCancelled || order.Status == domain.StatusDelivered {
		return
	}
	if len(order.Items) == 0 {
		return
	}
	s.releaseReserved(ctx, order.ID, order.Items, token, cause)
}

func (s *Service) publish(ctx context.Context, messageType string, order domain.Order) {
	if err := s.publisher.PublishOrderEvent(ctx, messageType, order); err != nil {
		// The local transaction is already committed and must not be
		// unwound over a publish failure.
		s.log.Error("event publish failed", "type", messageType, "order_id", order.ID, "err", err)
	}
}

func (s *Service) storedResult(ctx context.Context, p domain.Payment) PaymentResult {
	res := PaymentResult{
		PaymentID: p.ID,
		Status:    p.Status,
		Amount:    p.Amount,
	}
	if p.TransactionID != nil {
		res.TransactionID = *p.TransactionID
	}
	if o, err := s.repo.GetOrder(ctx, p.OrderID); err == nil {
		res.OrderStatus = o.Status
	}
	return res
}
