package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zxc1031408077/line-bot-ordering/internal/dispatch"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
)

type CartHandler struct {
	carts   dispatch.Carts
	policy  pricing.Policy
	timeout time.Duration
}

func NewCartHandler(carts dispatch.Carts, policy pricing.Policy, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		policy:  policy,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Cart  *domain.Cart  `json:"cart"`
	Quote pricing.Quote `json:"quote"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.View(ctx, getUserID(r.Context()))
	h.respondCart(w, r, http.StatusOK, c, err)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ItemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > domain.MaxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	c, err := h.carts.AddItem(ctx, getUserID(r.Context()), req.ItemID, req.Quantity)
	h.respondCart(w, r, http.StatusCreated, c, err)
}

// PUT /api/v1/cart/items/{item_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// 0 removes the line
	if req.Quantity < 0 || req.Quantity > domain.MaxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	c, err := h.carts.SetQuantity(ctx, getUserID(r.Context()), itemID, req.Quantity)
	h.respondCart(w, r, http.StatusOK, c, err)
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(ctx, getUserID(r.Context()), itemID)
	h.respondCart(w, r, http.StatusOK, c, err)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.Clear(ctx, getUserID(r.Context()))
	h.respondCart(w, r, http.StatusOK, c, err)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, status int, c *domain.Cart, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, status, CartResponseDTO{
		Cart:  c,
		Quote: pricing.QuoteLines(c.Lines, h.policy),
	})
}
