package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

// CatalogEditor changes the menu. Operator routes are mounted only when one
// is configured.
type CatalogEditor interface {
	Upsert(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error)
	SetAvailability(ctx context.Context, itemID int64, available bool) (domain.CatalogItem, error)
}

type UpsertItemRequestDTO struct {
	Name            string          `json:"name"`
	CategoryID      string          `json:"category_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
	Available       *bool           `json:"available"`
	PhotoURL        string          `json:"photo_url"`
}

type AvailabilityRequestDTO struct {
	Available *bool `json:"available"`
}

type CatalogHandler struct {
	catalog catalog.Catalog
	editor  CatalogEditor
	timeout time.Duration
}

func NewCatalogHandler(cat catalog.Catalog, editor CatalogEditor, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: cat,
		editor:  editor,
		timeout: timeout,
	}
}

// GET /api/v1/catalog/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

// GET /api/v1/catalog/items?category=
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.catalog.List(ctx, r.URL.Query().Get("category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// GET /api/v1/catalog/items/{item_id}
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.Lookup(ctx, itemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// POST /api/v1/catalog/items
func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	h.upsert(w, r, 0, http.StatusCreated)
}

// PUT /api/v1/catalog/items/{item_id}
func (h *CatalogHandler) PutItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}
	h.upsert(w, r, itemID, http.StatusOK)
}

func (h *CatalogHandler) upsert(w http.ResponseWriter, r *http.Request, itemID int64, status int) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpsertItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.CategoryID = strings.TrimSpace(req.CategoryID)

	switch {
	case req.Name == "" || req.CategoryID == "":
		respondError(w, http.StatusBadRequest, "invalid_item", "name and category_id are required")
		return
	case req.UnitPrice.IsNegative():
		respondError(w, http.StatusBadRequest, "invalid_item", "unit_price must not be negative")
		return
	case req.DiscountPercent < 0 || req.DiscountPercent > 100:
		respondError(w, http.StatusBadRequest, "invalid_item", "discount_percent must be between 0 and 100")
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item, err := h.editor.Upsert(ctx, domain.CatalogItem{
		ID:              itemID,
		Name:            req.Name,
		CategoryID:      req.CategoryID,
		UnitPrice:       req.UnitPrice,
		DiscountPercent: req.DiscountPercent,
		Available:       available,
		PhotoURL:        req.PhotoURL,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, status, item)
}

// PUT /api/v1/catalog/items/{item_id}/availability
func (h *CatalogHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var req AvailabilityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Available == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "available is required")
		return
	}

	item, err := h.editor.SetAvailability(ctx, itemID, *req.Available)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	if err != nil || itemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return 0, false
	}
	return itemID, true
}
