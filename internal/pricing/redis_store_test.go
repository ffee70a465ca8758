package pricing

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	_, _, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	fetchedAt := time.UnixMilli(1760875200123)
	require.NoError(t, store.Save(ctx, []byte(`{"A":{"price":1}}`), fetchedAt))

	blob, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Equal(t, `{"A":{"price":1}}`, blob)

	stamp, err := mr.Get(DefaultRedisKey + ":timestamp")
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(fetchedAt.UnixMilli(), 10), stamp)

	data, at, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"A":{"price":1}}`, string(data))
	assert.True(t, fetchedAt.Equal(at))

	require.NoError(t, store.Clear(ctx))
	_, _, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRedisStoreRejectsCorruptTimestamp(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, "test:prices")

	require.NoError(t, mr.Set("test:prices", `{}`))
	require.NoError(t, mr.Set("test:prices:timestamp", "yesterday"))

	_, _, err := store.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func TestTableOverRedisStoreSurvivesRestart(t *testing.T) {
	_, client := setupTestRedis(t)
	source := &fakeSource{data: []byte(`{"A": {"price": 7}}`)}

	first, _ := newTestTable(source, NewRedisStore(client, ""))
	_, err := first.Load(context.Background())
	require.NoError(t, err)

	// A new process reads the persisted snapshot instead of refetching
	second, _ := newTestTable(source, NewRedisStore(client, ""))
	snap, err := second.Load(context.Background())
	require.NoError(t, err)
	price, ok := snap.Lookup("A", "")
	assert.True(t, ok)
	assert.Equal(t, 7.0, price)
	assert.Equal(t, int32(1), source.calls.Load())
}
