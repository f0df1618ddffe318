package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"idcard/pkg/platform/sentinel"
)

const sessionKeyPrefix = "idcard:session:"

// RedisStore keeps each scope in one hash whose TTL is refreshed on write,
// so abandoned sessions expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL sets the idle lifetime of a session hash.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, ttl: 24 * time.Hour}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	v, err := s.client.HGet(ctx, sessionKeyPrefix+scope, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(sentinel.ErrUnavailable, err)
	}
	return v, nil
}

func (s *RedisStore) Put(ctx context.Context, scope, key string, value []byte) error {
	hash := sessionKeyPrefix + scope
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hash, key, value)
		pipe.Expire(ctx, hash, s.ttl)
		return nil
	})
	if err != nil {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, scope, key string) error {
	if err := s.client.HDel(ctx, sessionKeyPrefix+scope, key).Err(); err != nil {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, scope string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+scope).Err(); err != nil {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return nil
}
