package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialpulse/backend/pkg/types"
)

// Store is the small key-value surface the services use: verification codes,
// sweep dedupe claims and queued-job tombstones. Backed by redis in
// production; tests substitute an in-memory map.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
	// Claim sets the key only if absent and reports whether this caller won.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type redisStore struct {
	client *redis.Client
}

func NewStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return types.WrapFault(types.FaultInternal, "redis set", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.WrapFault(types.FaultInternal, "redis get", err)
	}
	return v, true, nil
}

func (s *redisStore) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return types.WrapFault(types.FaultInternal, "redis del", err)
	}
	return nil
}

func (s *redisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, types.WrapFault(types.FaultInternal, "redis setnx", err)
	}
	return ok, nil
}
