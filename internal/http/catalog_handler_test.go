package http

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxc1031408077/line-bot-ordering/internal/cart"
	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/internal/orders"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
)

func newEditorEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := catalog.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations())

	menu, err := repo.Snapshot(context.Background())
	require.NoError(t, err)

	policy := pricing.Policy{FreeDeliveryThreshold: decimal.NewFromInt(300), FlatFee: decimal.NewFromInt(30)}
	carts := cart.NewService(cart.NewMemoryRepository(), menu)
	ledger := orders.NewService(orders.NewMemoryRepository(), carts, policy)

	h := NewRouter(RouterConfig{
		Catalog:        menu,
		CatalogEditor:  catalog.NewEditor(repo, menu),
		Carts:          carts,
		Orders:         ledger,
		Policy:         policy,
		RequestTimeout: 5 * time.Second,
	})
	return &testEnv{handler: h, carts: carts}
}

func TestCatalogEditRoutes_DisabledWithoutEditor(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPut, "/api/v1/catalog/items/7/availability", "", AvailabilityRequestDTO{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogEditRoutes_AvailabilityUnblocksOrdering(t *testing.T) {
	env := newEditorEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "U1", AddItemRequestDTO{ItemID: 7, Quantity: 1})
	require.Equal(t, http.StatusConflict, rec.Code)

	on := true
	rec = env.do(t, http.MethodPut, "/api/v1/catalog/items/7/availability", "", AvailabilityRequestDTO{Available: &on})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.CatalogItem](t, rec).Available)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items", "U1", AddItemRequestDTO{ItemID: 7, Quantity: 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCatalogEditRoutes_CreateAndUpdate(t *testing.T) {
	env := newEditorEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/catalog/items", "", UpsertItemRequestDTO{
		Name:       "滷肉飯",
		CategoryID: "rice",
		UnitPrice:  decimal.NewFromInt(50),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.CatalogItem](t, rec)
	assert.NotZero(t, created.ID)
	assert.True(t, created.Available)

	rec = env.do(t, http.MethodPut, "/api/v1/catalog/items/"+strconv.FormatInt(created.ID, 10), "", UpsertItemRequestDTO{
		Name:            "滷肉飯",
		CategoryID:      "rice",
		UnitPrice:       decimal.NewFromInt(60),
		DiscountPercent: 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/catalog/items/"+strconv.FormatInt(created.ID, 10), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.CatalogItem](t, rec)
	assert.True(t, got.UnitPrice.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, 10, got.DiscountPercent)
}

func TestCatalogEditRoutes_Rejections(t *testing.T) {
	env := newEditorEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing name", http.MethodPost, "/api/v1/catalog/items",
			UpsertItemRequestDTO{CategoryID: "rice", UnitPrice: decimal.NewFromInt(1)}, http.StatusBadRequest},
		{"negative price", http.MethodPost, "/api/v1/catalog/items",
			UpsertItemRequestDTO{Name: "x", CategoryID: "rice", UnitPrice: decimal.NewFromInt(-1)}, http.StatusBadRequest},
		{"discount over 100", http.MethodPost, "/api/v1/catalog/items",
			UpsertItemRequestDTO{Name: "x", CategoryID: "rice", DiscountPercent: 101}, http.StatusBadRequest},
		{"availability missing", http.MethodPut, "/api/v1/catalog/items/1/availability",
			map[string]string{}, http.StatusBadRequest},
		{"availability unknown item", http.MethodPut, "/api/v1/catalog/items/999/availability",
			map[string]bool{"available": true}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, "", tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
