package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stocksCacheKey = "salesops:inventory:stocks"

// Cache holds the stock list between catalog calls.
type Cache interface {
	// GetStocks returns the cached list; ok is false on a miss.
	GetStocks(ctx context.Context) (stocks []Stock, ok bool, err error)
	SetStocks(ctx context.Context, stocks []Stock) error
}

// RedisCache stores the stock list as one JSON value with a TTL.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, key: stocksCacheKey, ttl: ttl}
}

func (c *RedisCache) GetStocks(ctx context.Context) ([]Stock, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read stock cache: %w", err)
	}

	var stocks []Stock
	if err := json.Unmarshal(data, &stocks); err != nil {
		return nil, false, fmt.Errorf("failed to decode stock cache: %w", err)
	}
	return stocks, true, nil
}

func (c *RedisCache) SetStocks(ctx context.Context, stocks []Stock) error {
	data, err := json.Marshal(stocks)
	if err != nil {
		return fmt.Errorf("failed to encode stock cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stock cache: %w", err)
	}
	return nil
}
