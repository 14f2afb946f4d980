package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "settings:pdf"

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context) (PdfSettings, error)
	Set(ctx context.Context, s PdfSettings) error
	Delete(ctx context.Context) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) (PdfSettings, error) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return PdfSettings{}, ErrCacheMiss
	}
	if err != nil {
		return PdfSettings{}, fmt.Errorf("redis get failed: %w", err)
	}
	var s PdfSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return PdfSettings{}, fmt.Errorf("unmarshal settings failed: %w", err)
	}
	return s, nil
}

func (c *RedisCache) Set(ctx context.Context, s PdfSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings failed: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
