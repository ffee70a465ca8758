package pricing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key holding the raw price index; the fetch time is
// kept under the same key with a ":timestamp" suffix as Unix milliseconds
const DefaultRedisKey = "casecheck:prices"

// RedisStore persists the price index in Redis
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store under key. An empty key uses DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

func (s *RedisStore) timestampKey() string {
	return s.key + ":timestamp"
}

// Load returns the persisted index and its fetch time
func (s *RedisStore) Load(ctx context.Context) ([]byte, time.Time, error) {
	values, err := s.client.MGet(ctx, s.key, s.timestampKey()).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading price snapshot: %w", err)
	}

	blob, ok := values[0].(string)
	if !ok {
		return nil, time.Time{}, ErrNoSnapshot
	}
	stamp, ok := values[1].(string)
	if !ok {
		return nil, time.Time{}, ErrNoSnapshot
	}

	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing price snapshot timestamp %q: %w", stamp, err)
	}

	return []byte(blob), time.UnixMilli(ms), nil
}

// Save writes the index and its timestamp in one transaction
func (s *RedisStore) Save(ctx context.Context, data []byte, fetchedAt time.Time) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key, data, 0)
	pipe.Set(ctx, s.timestampKey(), strconv.FormatInt(fetchedAt.UnixMilli(), 10), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing price snapshot: %w", err)
	}
	return nil
}

// Clear removes the persisted index
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key, s.timestampKey()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clearing price snapshot: %w", err)
	}
	return nil
}
