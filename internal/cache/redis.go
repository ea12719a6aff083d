package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/newscurator/internal/utils"
	"github.com/redis/go-redis/v9"
)

// MoveLog records which candidate urls already have an approved row, so a
// promotion interrupted between append and status update is not repeated
type MoveLog interface {
	IsPromoted(ctx context.Context, url string) (bool, error)
	MarkPromoted(ctx context.Context, url string) error
	Close() error
}

const promotedKey = "promoted:"

// key is stable for equal urls regardless of surrounding whitespace
func key(prefix, url string) string {
	return prefix + promotedKey + utils.Hash(url)
}

type RedisClient struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(ctx context.Context, redisURL, prefix string) (*RedisClient, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		prefix: prefix,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) IsPromoted(ctx context.Context, url string) (bool, error) {
	exists, err := r.client.Exists(ctx, key(r.prefix, url)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return exists > 0, nil
}

// MarkPromoted stores the url without expiry; the approved row it guards
// lives forever too
func (r *RedisClient) MarkPromoted(ctx context.Context, url string) error {
	if err := r.client.Set(ctx, key(r.prefix, url), url, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}
