package gateway

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratyushm21/ecommerce-saga/internal/order/application"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestChargeBelowThresholdSucceeds(t *testing.T) {
	g := NewMockGateway(discard(), decimal.NewFromInt(1000))
	orderID := uuid.New()

	res, err := g.Charge(context.Background(), orderID, decimal.RequireFromString("999.99"), "card")
	require.NoError(t, err)
	assert.Equal(t, application.ChargeSucceeded, res.Status)
	assert.True(t, strings.HasPrefix(res.TransactionID, "mock_txn_"+orderID.String()))
}

func TestChargeAboveThresholdDeclinesWithoutError(t *testing.T) {
	g := NewMockGateway(discard(), decimal.NewFromInt(1000))

	res, err := g.Charge(context.Background(), uuid.New(), decimal.RequireFromString("1000.01"), "card")
	require.NoError(t, err)
	assert.NotEqual(t, application.ChargeSucceeded, res.Status)
	assert.Empty(t, res.TransactionID)
}

func TestZeroThresholdNeverDeclines(t *testing.T) {
	g := NewMockGateway(discard(), decimal.Zero)

	res, err := g.Charge(context.Background(), uuid.New(), decimal.RequireFromString("123456.78"), "card")
	require.NoError(t, err)
	assert.Equal(t, application.ChargeSucceeded, res.Status)
}

func TestRefundReferencesOriginalTransaction(t *testing.T) {
	g := NewMockGateway(discard(), decimal.Zero)

	res, err := g.Refund(context.Background(), "mock_txn_abc_1234", decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	assert.Equal(t, "mock_txn_abc_1234", res.TransactionID)
	assert.True(t, strings.HasPrefix(res.RefundID, "mock_refund_mock_txn_abc_1234_"))
}
