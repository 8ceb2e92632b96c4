package countdown

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the countdown in a plain Redis string key with no expiry.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("countdown: redis client required")
	}
	return &RedisStore{redis: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) (string, bool, error) {
	value, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("countdown: redis get: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key, value string) error {
	if err := s.redis.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("countdown: redis set: %w", err)
	}
	return nil
}
