package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/pratyushm21/ecommerce-saga/internal/inventory/application"
	"github.com/pratyushm21/ecommerce-saga/internal/inventory/domain"
)

// Handler exposes the reservation boundary the order service calls. Callers
// must present a bearer token; the inventory side only checks presence, trust
// is between services.
type Handler struct {
	log *slog.Logger
	svc *application.Service
}

func NewHandler(log *slog.Logger, svc *application.Service) *Handler {
	return &Handler{log: log, svc: svc}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(requireBearer)
		r.Post("/validate-cart", h.validateCart)
		r.Post("/{id}/reserve", h.reserve)
		r.Post("/{id}/release", h.release)
	})

	return r
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if len(auth) < 8 || auth[:7] != "Bearer " {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type validateCartReq struct {
	Items []application.CartLine `json:"items"`
}

type pricedItemResp struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (h *Handler) validateCart(w http.ResponseWriter, r *http.Request) {
	var req validateCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	priced, err := h.svc.ValidateCart(r.Context(), req.Items)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	items := make([]pricedItemResp, 0, len(priced))
	for _, p := range priced {
		items = append(items, pricedItemResp{ProductID: p.ProductID, SKU: p.SKU, Quantity: p.Quantity, Price: p.Price})
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

type reservationReq struct {
	Quantity int    `json:"quantity"`
	OrderID  string `json:"order_id"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req reservationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := h.svc.Reserve(r.Context(), productID, req.Quantity, req.OrderID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reserved"})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req reservationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := h.svc.Release(r.Context(), productID, req.Quantity, req.OrderID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrProductInactive):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("inventory request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
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
