package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratyushm21/ecommerce-saga/internal/order/application"
	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
)

func TestValidateCartDecodesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/validate-cart", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var req validateCartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)

		json.NewEncoder(w).Encode(validateCartResponse{Items: []validatedItemResponse{
			{ProductID: "p-1", SKU: "SKU-1", Quantity: 2, Price: decimal.RequireFromString("12.50")},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	items, err := c.ValidateCart(context.Background(), []application.CartItem{{ProductID: "p-1", Quantity: 2}}, "tok-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SKU-1", items[0].SKU)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("12.50")))
}

func TestValidateCartRejectionMapsToValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponse{Error: "product p-9 not found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ValidateCart(context.Background(), []application.CartItem{{ProductID: "p-9", Quantity: 1}}, "")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "p-9")
}

func TestReserveConflictMapsToReservationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/p-1/reserve", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(errorResponse{Error: "insufficient stock"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Reserve(context.Background(), "p-1", 3, "order-1", "tok")
	require.ErrorIs(t, err, domain.ErrReservation)
}

func TestReleaseSendsOrderCorrelation(t *testing.T) {
	var got reservationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/p-2/release", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Release(context.Background(), "p-2", 5, "order-7", "tok"))
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, "order-7", got.OrderID)
}

func TestReserveStorageFailureIsNotAReservationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorResponse{Error: "internal error"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Reserve(context.Background(), "p-1", 1, "order-1", "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrReservation)
	assert.NotErrorIs(t, err, domain.ErrValidation)
}

func TestServerFailureIsNotAValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ValidateCart(context.Background(), []application.CartItem{{ProductID: "p-1", Quantity: 1}}, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrValidation)
}
