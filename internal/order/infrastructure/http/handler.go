package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pratyushm21/ecommerce-saga/internal/order/application"
	"github.com/pratyushm21/ecommerce-saga/internal/order/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	secret  []byte
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, jwtSecret []byte) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  jwtSecret,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(Authenticator(h.secret))

		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Post("/{id}/status", h.updateStatus)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleCustomer))
			r.Post("/", h.createOrder)
			r.Post("/{id}/payments", h.processPayment)
		})
	})

	return r
}

type createOrderReq struct {
	Items []application.CartItem `json:"items"`
}

type orderItemResp struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type orderResp struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Items     []orderItemResp `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toOrderResp(o domain.Order) orderResp {
	resp := orderResp{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		Total:     o.Total,
		Items:     make([]orderItemResp, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResp{
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return resp
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	order, err := h.service.CreateOrder(ctx, userIDFrom(ctx), req.Items, tokenFrom(ctx))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResp(order))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResp(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	resp := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResp(o))
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

type paymentReq struct {
	IdempotencyKey string           `json:"idempotency_key"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Method         string           `json:"payment_method,omitempty"`
}

type paymentResp struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	OrderStatus   string          `json:"order_status"`
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProcessPayment")
	defer span.End()

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req paymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	result, err := h.service.ProcessPayment(ctx, orderID, application.PaymentInput{
		IdempotencyKey: req.IdempotencyKey,
		Amount:         req.Amount,
		Method:         req.Method,
		Token:          tokenFrom(ctx),
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	resp := paymentResp{
		PaymentID:   result.PaymentID,
		Status:      string(result.Status),
		Amount:      result.Amount,
		OrderStatus: string(result.OrderStatus),
	}
	resp.TransactionID = result.TransactionID
	respondJSON(w, http.StatusOK, resp)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	to, err := domain.ToOrderStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResp(order))
}

// respondServiceError translates domain sentinels onto HTTP statuses. Errors
// that match nothing are upstream failures and surface as 502.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPaymentFailed):
		respondError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrReservation),
		errors.Is(err, domain.ErrPaymentConflict),
		errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrAmountMismatch):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		respondError(w, http.StatusBadGateway, "upstream failure")
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
