package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zxc1031408077/line-bot-ordering/internal/dispatch"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/internal/orders"
)

// OrderService is the ledger as the HTTP layer sees it.
type OrderService interface {
	dispatch.Ledger
	Advance(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	History(ctx context.Context, orderID string) ([]orders.StatusChange, error)
}

type OrderHistoryResponseDTO struct {
	OrderID string                `json:"order_id"`
	Status  domain.OrderStatus    `json:"status"`
	History []orders.StatusChange `json:"history"`
}

type OrdersHandler struct {
	orders      OrderService
	idempotency IdempotencyStore
	timeout     time.Duration
}

func NewOrdersHandler(ledger OrderService, idempotency IdempotencyStore, timeout time.Duration) *OrdersHandler {
	if idempotency == nil {
		idempotency = NewMemoryIdempotencyStore()
	}
	return &OrdersHandler{
		orders:      ledger,
		idempotency: idempotency,
		timeout:     timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

const checkoutIdempotencyTTL = 24 * time.Hour

// POST /api/v1/checkout
//
// A repeated Idempotency-Key answers 409 instead of placing a second order.
// Failed attempts release the key.
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserID(r.Context())

	claimKey := ""
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		claimed, err := h.idempotency.Claim(ctx, "checkout:"+userID+":"+key, checkoutIdempotencyTTL)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "idempotency claim failed, continuing", "error", err)
		case !claimed:
			respondError(w, http.StatusConflict, "duplicate_request", "checkout with this idempotency key already submitted")
			return
		default:
			claimKey = "checkout:" + userID + ":" + key
		}
	}

	order, err := h.orders.Checkout(ctx, userID)
	if err != nil {
		if claimKey != "" {
			if relErr := h.idempotency.Release(context.WithoutCancel(ctx), claimKey); relErr != nil {
				slog.WarnContext(ctx, "idempotency release failed", "error", relErr)
			}
		}
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GET /api/v1/orders?limit=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	list, err := h.orders.List(ctx, getUserID(r.Context()), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.Get(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if order.UserID != getUserID(r.Context()) {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !status.IsValid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status "+strconv.Quote(req.Status))
		return
	}

	order, err := h.orders.Advance(ctx, chi.URLParam(r, "order_id"), status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/orders/{order_id}/history
func (h *OrdersHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.Get(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if order.UserID != getUserID(r.Context()) {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	history, err := h.orders.History(ctx, order.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, OrderHistoryResponseDTO{
		OrderID: order.ID,
		Status:  order.Status,
		History: history,
	})
}
