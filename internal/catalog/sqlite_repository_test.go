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

func setupTestDB(t *testing.T) *catalog.SQLiteRepository {
	repo, err := catalog.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func TestList_Returns7AfterMigrations(t *testing.T) {
	repo := setupTestDB(t)

	items, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, items, 7)
}

func TestRunMigrations_Twice(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestLookup_Seeded(t *testing.T) {
	repo := setupTestDB(t)

	item, err := repo.Lookup(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "炸豬排套餐", item.Name)
	assert.Equal(t, "sets", item.CategoryID)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, 10, item.DiscountPercent)
	assert.True(t, item.Available)

	mango, err := repo.Lookup(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, mango.Available)
}

func TestLookup_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Lookup(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_ByCategory(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	rice, err := repo.List(ctx, "rice")
	require.NoError(t, err)
	require.Len(t, rice, 2)
	assert.Equal(t, int64(2), rice[0].ID)
	assert.Equal(t, int64(5), rice[1].ID)

	_, err = repo.List(ctx, "pizza")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCategories_Ordered(t *testing.T) {
	repo := setupTestDB(t)

	cats, err := repo.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 5)
	assert.Equal(t, "noodles", cats[0].ID)
	assert.Equal(t, "desserts", cats[4].ID)
}

func TestUpsert_InsertAndUpdate(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	id, err := repo.Upsert(ctx, domain.CatalogItem{
		Name:       "蛋餅",
		CategoryID: "breakfast",
		UnitPrice:  decimal.RequireFromString("35.5"),
		Available:  true,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(7))

	item, err := repo.Lookup(ctx, id)
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("35.5")))

	item.UnitPrice = decimal.NewFromInt(40)
	_, err = repo.Upsert(ctx, item)
	require.NoError(t, err)

	updated, err := repo.Lookup(ctx, id)
	require.NoError(t, err)
	assert.True(t, updated.UnitPrice.Equal(decimal.NewFromInt(40)))

	breakfast, err := repo.List(ctx, "breakfast")
	require.NoError(t, err)
	assert.Len(t, breakfast, 1)
}

func TestUpsert_RejectsBadDiscount(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Upsert(context.Background(), domain.CatalogItem{
		Name: "x", CategoryID: "rice", UnitPrice: decimal.NewFromInt(1), DiscountPercent: 120,
	})
	assert.Error(t, err)
}

func TestSetAvailability(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SetAvailability(ctx, 1, false))
	item, err := repo.Lookup(ctx, 1)
	require.NoError(t, err)
	assert.False(t, item.Available)

	assert.ErrorIs(t, repo.SetAvailability(ctx, 999, true), domain.ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	items, err := snap.List(ctx, "drinks")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestReloadInto_PicksUpChanges(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.SetAvailability(ctx, 7, true))
	before, err := snap.Lookup(ctx, 7)
	require.NoError(t, err)
	assert.False(t, before.Available)

	require.NoError(t, repo.ReloadInto(ctx, snap))
	after, err := snap.Lookup(ctx, 7)
	require.NoError(t, err)
	assert.True(t, after.Available)
}
