package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

func TestEditor_SetAvailabilityVisibleImmediately(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	menu, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	editor := catalog.NewEditor(repo, menu)

	item, err := editor.SetAvailability(ctx, 7, true)
	require.NoError(t, err)
	assert.True(t, item.Available)

	got, err := menu.Lookup(ctx, 7)
	require.NoError(t, err)
	assert.True(t, got.Available)
}

func TestEditor_SetAvailabilityUnknownItem(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	menu, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	_, err = catalog.NewEditor(repo, menu).SetAvailability(ctx, 999, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditor_UpsertNewItem(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	menu, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	editor := catalog.NewEditor(repo, menu)

	item, err := editor.Upsert(ctx, domain.CatalogItem{
		Name:            "滷肉飯",
		CategoryID:      "rice",
		UnitPrice:       decimal.NewFromInt(50),
		DiscountPercent: 0,
		Available:       true,
	})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, "滷肉飯", item.Name)

	items, err := menu.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, items, 8)
}
