package integration

import (
	"log/slog"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	tc "github.com/testcontainers/testcontainers-go"
	"go.uber.org/goleak"

	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
	orderpg "github.com/pratyushm21/ecommerce-saga/internal/order/infrastructure/postgres"
)

type orderRepositorySuite struct {
	suite.Suite

	pool      *pgxpool.Pool
	repo      *orderpg.Repository
	container tc.Container
}

func TestOrderRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test, requires docker")
	}
	defer goleak.VerifyNone(t)

	suite.Run(t, new(orderRepositorySuite))
}

func (s *orderRepositorySuite) SetupSuite() {
	ctx := s.T().Context()

	container, connStr, err := StartPostgres(ctx)
	s.Require().NoError(err)
	s.container = container

	s.pool, err = pgxpool.New(ctx, connStr)
	s.Require().NoError(err)

	s.repo = orderpg.NewRepository(slog.New(slog.DiscardHandler), s.pool)
	s.Require().NoError(s.repo.EnsureSchema(ctx))
}

func (s *orderRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(s.T().Context()))
	}
}

func fakeOrder() domain.Order {
	o := domain.NewOrder(uuid.New(), nil)
	items := []domain.OrderItem{
		{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: gofakeit.UUID(),
			SKU:       gofakeit.LetterN(8),
			Quantity:  gofakeit.Number(1, 5),
			Price:     decimal.NewFromInt(int64(gofakeit.Number(100, 9999))).Div(decimal.NewFromInt(100)),
		},
		{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: gofakeit.UUID(),
			SKU:       gofakeit.LetterN(8),
			Quantity:  gofakeit.Number(1, 5),
			Price:     decimal.NewFromInt(int64(gofakeit.Number(100, 9999))).Div(decimal.NewFromInt(100)),
		},
	}
	o.Items = items
	o.Total = domain.OrderTotal(items)
	return o
}

func (s *orderRepositorySuite) createOrder() domain.Order {
	ctx := s.T().Context()
	o := fakeOrder()

	row := o
	row.Items = nil
	s.Require().NoError(s.repo.CreateOrder(ctx, row))
	s.Require().NoError(s.repo.AddItems(ctx, o.ID, o.Items))
	return o
}

func (s *orderRepositorySuite) TestOrderRoundTrip() {
	ctx := s.T().Context()
	o := s.createOrder()

	got, err := s.repo.GetOrder(ctx, o.ID)
	s.Require().NoError(err)

	s.Equal(o.ID, got.ID)
	s.Equal(o.UserID, got.UserID)
	s.Equal(domain.StatusPending, got.Status)
	s.True(got.Total.Equal(o.Total), "total %s vs %s", got.Total, o.Total)
	s.Require().Len(got.Items, 2)
	s.True(got.Items[0].Price.Equal(o.Items[0].Price) || got.Items[1].Price.Equal(o.Items[0].Price))
}

func (s *orderRepositorySuite) TestGetOrderUnknownID() {
	_, err := s.repo.GetOrder(s.T().Context(), uuid.New())
	s.ErrorIs(err, domain.ErrOrderNotFound)
}

func (s *orderRepositorySuite) TestListByUser() {
	ctx := s.T().Context()
	o := s.createOrder()

	orders, err := s.repo.ListByUser(ctx, o.UserID)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(o.ID, orders[0].ID)
	s.Len(orders[0].Items, 2)
}

func (s *orderRepositorySuite) TestIdempotencyKeyIsUnique() {
	ctx := s.T().Context()
	o := s.createOrder()

	key := gofakeit.UUID()
	p := domain.Payment{
		ID:             uuid.New(),
		OrderID:        o.ID,
		IdempotencyKey: key,
		Amount:         o.Total,
		Status:         domain.PaymentPending,
		Method:         "card",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	s.Require().NoError(s.repo.InsertPendingPayment(ctx, p))

	dup := p
	dup.ID = uuid.New()
	s.ErrorIs(s.repo.InsertPendingPayment(ctx, dup), domain.ErrPaymentConflict)

	got, err := s.repo.PaymentByIdempotencyKey(ctx, key)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal(domain.PaymentPending, got.Status)
	s.Nil(got.TransactionID)
}

func (s *orderRepositorySuite) TestMarkPaymentSucceededTransitionsOrder() {
	ctx := s.T().Context()
	o := s.createOrder()

	p := domain.Payment{
		ID:             uuid.New(),
		OrderID:        o.ID,
		IdempotencyKey: gofakeit.UUID(),
		Amount:         o.Total,
		Status:         domain.PaymentPending,
		Method:         "card",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	s.Require().NoError(s.repo.InsertPendingPayment(ctx, p))

	s.Require().NoError(s.repo.MarkPaymentSucceeded(ctx, p.ID, o.ID, "txn-123"))

	got, err := s.repo.PaymentByIdempotencyKey(ctx, p.IdempotencyKey)
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, got.Status)
	s.Require().NotNil(got.TransactionID)
	s.Equal("txn-123", *got.TransactionID)

	order, err := s.repo.GetOrder(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusPaid, order.Status)

	// A second settle of the same payment is rejected: the row is no
	// longer pending.
	s.Error(s.repo.MarkPaymentSucceeded(ctx, p.ID, o.ID, "txn-456"))
}

func (s *orderRepositorySuite) TestUpdateOrderStatusGuardsTransitions() {
	ctx := s.T().Context()
	o := s.createOrder()

	updated, err := s.repo.UpdateOrderStatus(ctx, o.ID, domain.StatusConfirmed)
	s.Require().NoError(err)
	s.Equal(domain.StatusConfirmed, updated.Status)

	_, err = s.repo.UpdateOrderStatus(ctx, o.ID, domain.StatusDelivered)
	s.ErrorIs(err, domain.ErrInvalidTransition)

	// Identity transition succeeds and changes nothing.
	same, err := s.repo.UpdateOrderStatus(ctx, o.ID, domain.StatusConfirmed)
	s.Require().NoError(err)
	s.Equal(domain.StatusConfirmed, same.Status)
}
