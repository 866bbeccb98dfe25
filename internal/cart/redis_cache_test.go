package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func sampleCart(userID string) *domain.Cart {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Cart{
		UserID: userID,
		Lines: []domain.CartLine{
			{ItemID: 1, Name: "牛肉麵", Quantity: 2, UnitPrice: decimal.RequireFromString("150"), ListPrice: decimal.RequireFromString("150"), AddedAt: now},
			{ItemID: 3, Name: "炸豬排套餐", Quantity: 1, UnitPrice: decimal.RequireFromString("162"), ListPrice: decimal.RequireFromString("180"), AddedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRedisCache_GetPreset(t *testing.T) {
	cache, mr := setupTestRedis(t)
	c := sampleCart("user123")

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey("user123"), string(raw)))

	got, err := cache.Get(context.Background(), "user123")
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[1].UnitPrice.Equal(decimal.RequireFromString("162")))
}

func TestRedisCache_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_SetSetsTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "user123", sampleCart("user123")))

	assert.True(t, mr.Exists(cacheKey("user123")))
	ttl := mr.TTL(cacheKey("user123"))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "user123", sampleCart("user123")))

	require.NoError(t, cache.Delete(ctx, "user123"))

	assert.False(t, mr.Exists(cacheKey("user123")))
}

func TestRedisCache_ServerDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "user123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
