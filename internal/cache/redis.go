package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/carpool-matching/internal/models"
)

// Redis stores ranked results as JSON with a TTL. Only offer ids are kept.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]models.MatchResult, bool, error) {
	b, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var out []models.MatchResult
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false, fmt.Errorf("decode cached matches: %w", err)
	}
	return out, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, results []models.MatchResult) error {
	b, err := json.Marshal(detach(results))
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(key), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func redisKey(k string) string { return "match:" + k }
