package domain

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTotalExactDecimal(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p-1", Quantity: 2, Price: decimal.RequireFromString("10.00")},
		{ProductID: "p-2", Quantity: 2, Price: decimal.RequireFromString("2.50")},
	}

	total := OrderTotal(items)
	assert.True(t, total.Equal(decimal.RequireFromString("25.00")), "got %s", total)
}

func TestOrderTotalMatchesLineSum(t *testing.T) {
	var items []OrderItem
	expected := decimal.Zero
	for i := 0; i < 20; i++ {
		price := decimal.NewFromInt(int64(gofakeit.Number(1, 100000))).Div(decimal.NewFromInt(100))
		qty := gofakeit.Number(1, 9)
		items = append(items, OrderItem{ProductID: gofakeit.UUID(), Quantity: qty, Price: price})
		expected = expected.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}

	assert.True(t, OrderTotal(items).Equal(expected))
}

func TestNewOrderStartsPending(t *testing.T) {
	userID := uuid.New()
	o := NewOrder(userID, []OrderItem{{ProductID: "p-1", Quantity: 1, Price: decimal.NewFromInt(5)}})

	require.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, userID, o.UserID)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
}

func TestLineTotalRepeatedCents(t *testing.T) {
	// 3 × 0.10 must be exactly 0.30.
	it := OrderItem{Quantity: 3, Price: decimal.RequireFromString("0.10")}
	assert.True(t, it.LineTotal().Equal(decimal.RequireFromString("0.30")))
}
