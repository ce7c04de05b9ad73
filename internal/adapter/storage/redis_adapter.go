package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poslane/poslane/internal/core/domain"
)

const (
	productKeyPrefix = "product:code:"
	productCacheTTL  = 15 * time.Minute
)

// RedisAdapter caches product lookups so repeat scans of the same code skip
// the remote round trip. It is optional; the lane works without it.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Get(ctx context.Context, code string) (*domain.Product, bool, error) {
	payload, err := r.client.Get(ctx, productKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var product domain.Product
	if err := json.Unmarshal([]byte(payload), &product); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &product, true, nil
}

func (r *RedisAdapter) Put(ctx context.Context, product domain.Product) error {
	payload, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := r.client.Set(ctx, productKeyPrefix+product.Code, payload, productCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
