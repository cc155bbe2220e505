package service

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/redisclient"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisclient.NewWithRedis(rdb), mr
}

func TestCartService_AddMergesAndCounts(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	prod := m.addProduct("Mug", "12.50", 10)
	s := NewCartService(m, nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, user, prod, 2))
	require.NoError(t, s.AddItem(ctx, user, prod, 3))

	items, err := s.GetCart(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "Mug", items[0].Name)
	assert.True(t, items[0].Available)

	n, err := s.Count(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCartService_AddValidation(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	prod := m.addProduct("Mug", "12.50", 2)
	s := NewCartService(m, nil, time.Minute)
	ctx := context.Background()

	assert.Equal(t, KindValidation, KindOf(s.AddItem(ctx, user, prod, 0)))
	assert.Equal(t, KindValidation, KindOf(s.AddItem(ctx, user, prod, 3)))
	assert.ErrorIs(t, s.AddItem(ctx, user, uuid.New(), 1), ErrProductNotFound)
	assert.ErrorIs(t, s.AddItem(ctx, uuid.New(), prod, 1), ErrUserNotFound)
	assert.Empty(t, m.carts[user])
}

func TestCartService_AddBoundedByStockIncludingExistingLine(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	prod := m.addProduct("Mug", "12.50", 5)
	s := NewCartService(m, nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, user, prod, 3))
	err := s.AddItem(ctx, user, prod, 3)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "only 5 of Mug")
	assert.Equal(t, 3, m.carts[user][0].Quantity)

	require.NoError(t, s.AddItem(ctx, user, prod, 2))
	assert.Equal(t, 5, m.carts[user][0].Quantity)
}

func TestCartService_UpdateBoundedByStock(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	prod := m.addProduct("Mug", "12.50", 4)
	m.putInCart(user, prod, 1)
	s := NewCartService(m, nil, time.Minute)

	assert.Equal(t, KindValidation, KindOf(s.UpdateItem(context.Background(), user, prod, 5)))
	assert.Equal(t, 1, m.carts[user][0].Quantity)
}

func TestCartService_UpdateAndRemove(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	prod := m.addProduct("Mug", "12.50", 10)
	m.putInCart(user, prod, 1)
	s := NewCartService(m, nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.UpdateItem(ctx, user, prod, 4))
	assert.Equal(t, 4, m.carts[user][0].Quantity)

	assert.Equal(t, KindValidation, KindOf(s.UpdateItem(ctx, user, prod, 0)))
	assert.ErrorIs(t, s.UpdateItem(ctx, user, uuid.New(), 1), ErrCartItemNotFound)

	require.NoError(t, s.RemoveItem(ctx, user, prod))
	assert.Empty(t, m.carts[user])
	assert.ErrorIs(t, s.RemoveItem(ctx, user, prod), ErrCartItemNotFound)
}

func TestCartService_DeletedProductShownUnavailable(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	gone := uuid.New()
	m.putInCart(user, gone, 2)
	s := NewCartService(m, nil, time.Minute)

	items, err := s.GetCart(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Available)
	assert.Equal(t, gone, items[0].ProductID)
}

func TestCartService_UsesProductCache(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	prod := m.addProduct("Mug", "12.50", 10)
	m.putInCart(user, prod, 1)
	cache, mr := newTestCache(t)
	s := NewCartService(m, cache, time.Minute)
	ctx := context.Background()

	_, err := s.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)

	// the cached view is served even after the store copy changes
	p := m.products[prod]
	p.Name = "Renamed"
	m.products[prod] = p

	items, err := s.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Mug", items[0].Name)

	require.NoError(t, cache.InvalidateProducts(ctx, prod))
	items, err = s.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", items[0].Name)
}

func TestCartService_CacheOutageFallsBackToStore(t *testing.T) {
	m := newMemStore()
	user := m.addUser()
	prod := m.addProduct("Mug", "12.50", 10)
	m.putInCart(user, prod, 1)
	cache, mr := newTestCache(t)
	mr.Close()
	s := NewCartService(m, cache, time.Minute)

	items, err := s.GetCart(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "Mug", items[0].Name)
}
