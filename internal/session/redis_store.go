package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces session hashes in Redis.
const DefaultRedisKeyPrefix = "phiguard:session:"

// RedisStore keeps each session in one Redis hash whose TTL is refreshed on every access.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient opens a client and checks connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

// Get returns the value stored under key and refreshes the session TTL.
func (r *RedisStore) Get(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	hashKey := r.key(sessionID)

	var get *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, hashKey, key)
		r.touch(ctx, pipe, hashKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("failed to get session value: %w", err)
	}

	value, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session value: %w", err)
	}
	return value, true, nil
}

// touch queues a TTL refresh. EXPIRE on a missing hash is a no-op.
func (r *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, hashKey string) {
	if r.ttl > 0 {
		pipe.Expire(ctx, hashKey, r.ttl)
	}
}

// Set stores value under key and refreshes the session TTL.
func (r *RedisStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	hashKey := r.key(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey, key, value)
		r.touch(ctx, pipe, hashKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set session value: %w", err)
	}
	return nil
}

// Delete removes key from the session.
func (r *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	if err := r.client.HDel(ctx, r.key(sessionID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete session value: %w", err)
	}
	return nil
}

// Keys lists the session's keys in sorted order and refreshes the session TTL.
func (r *RedisStore) Keys(ctx context.Context, sessionID string) ([]string, error) {
	hashKey := r.key(sessionID)

	var hkeys *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hkeys = pipe.HKeys(ctx, hashKey)
		r.touch(ctx, pipe, hashKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list session keys: %w", err)
	}

	keys := hkeys.Val()
	sort.Strings(keys)
	return keys, nil
}

// Destroy removes the session hash.
func (r *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Exists reports whether the session hash is present and refreshes its TTL.
func (r *RedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	hashKey := r.key(sessionID)

	if r.ttl > 0 {
		found, err := r.client.Expire(ctx, hashKey, r.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check session: %w", err)
		}
		return found, nil
	}

	n, err := r.client.Exists(ctx, hashKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
