package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when NewRedisStore receives an empty key.
const DefaultRedisKey = "gs:session"

// RedisStore keeps the record under a single Redis key.
type RedisStore struct {
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
}

// NewRedisStore returns a Redis-backed [Store]. A ttl of zero stores the key
// without expiry.
//
//	Performance: 1 Redis command per operation.
func NewRedisStore(client redis.UniversalClient, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		redis: client,
		key:   key,
		ttl:   ttl,
	}
}

// Key returns the Redis key the record lives under.
func (s *RedisStore) Key() string {
	return s.key
}

// Load implements [Store].
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Decode(data)
}

// Save implements [Store].
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear implements [Store].
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
