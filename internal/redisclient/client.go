package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	productViewPrefix = "product:view:"
	idempotencyPrefix = "idempotency:"
)

type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewWithRedis wraps an existing go-redis client
func NewWithRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productViewKey(id uuid.UUID) string {
	return productViewPrefix + id.String()
}

// GetProductViews returns the cached views among ids. Missing ids are absent
// from the result map.
func (c *Client) GetProductViews(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductView, error) {
	views := make(map[uuid.UUID]models.ProductView, len(ids))
	if len(ids) == 0 {
		return views, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productViewKey(id)
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget product views: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var view models.ProductView
		if err := json.Unmarshal([]byte(s), &view); err != nil {
			// corrupt entry, treat as a miss
			continue
		}
		views[ids[i]] = view
	}
	return views, nil
}

// SetProductViews caches views for ttl
func (c *Client) SetProductViews(ctx context.Context, views []models.ProductView, ttl time.Duration) error {
	if len(views) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, v := range views {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		pipe.Set(ctx, productViewKey(v.ID), b, ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// InvalidateProducts drops cached views so the next read goes to the store
func (c *Client) InvalidateProducts(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productViewKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func idempotencyKey(userID uuid.UUID, key string) string {
	return fmt.Sprintf("%s%s:%s", idempotencyPrefix, userID, key)
}

// RememberOrder maps a caller's idempotency key to the order it produced.
// An existing mapping is kept.
func (c *Client) RememberOrder(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID, ttl time.Duration) error {
	return c.rdb.SetNX(ctx, idempotencyKey(userID, key), orderID.String(), ttl).Err()
}

// LookupOrder returns the order id remembered for a caller's idempotency key
func (c *Client) LookupOrder(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error) {
	val, err := c.rdb.Get(ctx, idempotencyKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency entry: %w", err)
	}
	return id, true, nil
}
