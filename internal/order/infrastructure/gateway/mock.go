package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pratyushm21/ecommerce-saga/internal/order/application"
)

// MockGateway stands in for a real payment provider. Charges above the
// decline threshold come back declined, which exercises the compensation
// path end to end without a provider account.
type MockGateway struct {
	log              *slog.Logger
	declineThreshold decimal.Decimal
}

func NewMockGateway(log *slog.Logger, declineThreshold decimal.Decimal) *MockGateway {
	return &MockGateway{log: log, declineThreshold: declineThreshold}
}

func (g *MockGateway) Charge(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, method string) (application.ChargeResult, error) {
	if g.declineThreshold.IsPositive() && amount.GreaterThan(g.declineThreshold) {
		g.log.Info("charge declined", "order_id", orderID, "amount", amount, "method", method)
		return application.ChargeResult{Status: "declined"}, nil
	}

	txn := fmt.Sprintf("mock_txn_%s_%s", orderID, uuid.NewString()[:8])
	g.log.Info("charge succeeded", "order_id", orderID, "amount", amount, "transaction_id", txn)
	return application.ChargeResult{TransactionID: txn, Status: application.ChargeSucceeded}, nil
}

func (g *MockGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (application.RefundResult, error) {
	refund := fmt.Sprintf("mock_refund_%s_%s", transactionID, uuid.NewString()[:8])
	g.log.Info("refund issued", "transaction_id", transactionID, "amount", amount, "refund_id", refund)
	return application.RefundResult{
		RefundID:      refund,
		TransactionID: transactionID,
		Status:        application.ChargeSucceeded,
	}, nil
}
