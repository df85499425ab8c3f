package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanCount is the COUNT hint for each SCAN page.
const scanCount = 200

// RedisStore implements KVStore on a Redis server
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisClient creates the Redis client shared by the store and the
// stream publisher.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStore creates a store on client. Every call is bounded by timeout.
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		timeout: timeout,
	}
}

func (s *RedisStore) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.scoped(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Get returns the value at key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.scoped(ctx)
	defer cancel()

	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores value with SET EX
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := s.scoped(ctx)
	defer cancel()
	return s.client.Set(ctx, key, value, ttl).Err()
}

// List walks the keyspace with SCAN MATCH prefix*
func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := s.scoped(ctx)
	defer cancel()

	var keys []string
	iter := s.client.Scan(ctx, 0, escapePattern(prefix)+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// escapePattern escapes glob metacharacters so prefix matches literally.
func escapePattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
