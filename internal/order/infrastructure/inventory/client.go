package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratyushm21/ecommerce-saga/internal/order/application"
	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
)

// Client talks to the inventory service over HTTP. Reservation and release
// calls are keyed by order id so the inventory side can correlate them.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type validateCartRequest struct {
	Items []application.CartItem `json:"items"`
}

type validatedItemResponse struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type validateCartResponse struct {
	Items []validatedItemResponse `json:"items"`
}

type reservationRequest struct {
	Quantity int    `json:"quantity"`
	OrderID  string `json:"order_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) ValidateCart(ctx context.Context, items []application.CartItem, token string) ([]application.ValidatedItem, error) {
	var out validateCartResponse
	err := c.post(ctx, "/api/v1/inventory/validate-cart", validateCartRequest{Items: items}, token, &out)
	if err != nil {
		return nil, err
	}

	validated := make([]application.ValidatedItem, 0, len(out.Items))
	for _, it := range out.Items {
		validated = append(validated, application.ValidatedItem{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return validated, nil
}

func (c *Client) Reserve(ctx context.Context, productID string, quantity int, orderID string, token string) error {
	path := fmt.Sprintf("/api/v1/inventory/%s/reserve", productID)
	return c.post(ctx, path, reservationRequest{Quantity: quantity, OrderID: orderID}, token, nil)
}

func (c *Client) Release(ctx context.Context, productID string, quantity int, orderID string, token string) error {
	path := fmt.Sprintf("/api/v1/inventory/%s/release", productID)
	return c.post(ctx, path, reservationRequest{Quantity: quantity, OrderID: orderID}, token, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, token string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inventory call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(path, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError maps inventory rejections onto the domain sentinels the saga
// branches on. 4xx means the request itself is bad (unknown product, not
// enough stock); anything else is an upstream failure.
func (c *Client) statusError(path string, resp *http.Response) error {
	var msg errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &msg) != nil || msg.Error == "" {
		msg.Error = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		if path == "/api/v1/inventory/validate-cart" {
			return fmt.Errorf("%w: %s", domain.ErrValidation, msg.Error)
		}
		return fmt.Errorf("%w: %s", domain.ErrReservation, msg.Error)
	}
	return fmt.Errorf("inventory %s: status %d: %s", path, resp.StatusCode, msg.Error)
}
