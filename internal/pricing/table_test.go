package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls   atomic.Int32
	mu      sync.Mutex
	data    []byte
	err     error
	release chan struct{}
}

func (s *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, s.err
}

func (s *fakeSource) set(data string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = []byte(data)
	s.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTable(source Source, store Store) (*Table, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	return NewTable(source, store, WithClock(clock.Now), WithTTL(time.Hour)), clock
}

func TestLoadFetchesAndCaches(t *testing.T) {
	source := &fakeSource{data: []byte(`{"AK-47 | Redline (Field-Tested)": {"price": 12.5}}`)}
	table, _ := newTestTable(source, nil)

	snap, err := table.Load(context.Background())
	require.NoError(t, err)
	price, ok := snap.Lookup("AK-47 | Redline (Field-Tested)", "")
	require.True(t, ok)
	assert.Equal(t, 12.5, price)

	_, err = table.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), source.calls.Load())

	price, ok = table.Lookup("AK-47 | Redline (Field-Tested)", "")
	require.True(t, ok)
	assert.Equal(t, 12.5, price)
}

func TestLoadRefetchesAfterTTL(t *testing.T) {
	source := &fakeSource{data: []byte(`{"A": {"price": 1}}`)}
	table, clock := newTestTable(source, nil)

	_, err := table.Load(context.Background())
	require.NoError(t, err)

	source.set(`{"A": {"price": 2}}`, nil)
	clock.Advance(59 * time.Minute)
	snap, _ := table.Load(context.Background())
	price, _ := snap.Lookup("A", "")
	assert.Equal(t, 1.0, price)

	clock.Advance(2 * time.Minute)
	snap, err = table.Load(context.Background())
	require.NoError(t, err)
	price, _ = snap.Lookup("A", "")
	assert.Equal(t, 2.0, price)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestLoadUsesFreshPersistedSnapshot(t *testing.T) {
	source := &fakeSource{data: []byte(`{"A": {"price": 2}}`)}
	store := NewMemoryStore()
	table, clock := newTestTable(source, store)

	require.NoError(t, store.Save(context.Background(), []byte(`{"A": {"price": 1}}`), clock.Now().Add(-10*time.Minute)))

	snap, err := table.Load(context.Background())
	require.NoError(t, err)
	price, _ := snap.Lookup("A", "")
	assert.Equal(t, 1.0, price)
	assert.Zero(t, source.calls.Load())
}

func TestLoadPersistsFetchedSnapshot(t *testing.T) {
	source := &fakeSource{data: []byte(`{"A": {"price": 2}}`)}
	store := NewMemoryStore()
	table, clock := newTestTable(source, store)

	_, err := table.Load(context.Background())
	require.NoError(t, err)

	data, fetchedAt, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"A": {"price": 2}}`, string(data))
	assert.Equal(t, clock.Now(), fetchedAt)
}

func TestLoadFallsBackToLastGoodSnapshot(t *testing.T) {
	source := &fakeSource{data: []byte(`{"A": {"price": 1}}`)}
	table, clock := newTestTable(source, nil)

	_, err := table.Load(context.Background())
	require.NoError(t, err)

	source.set("", errors.New("connection reset"))
	clock.Advance(2 * time.Hour)

	snap, err := table.Load(context.Background())
	assert.Error(t, err)
	require.NotNil(t, snap)
	price, ok := snap.Lookup("A", "")
	assert.True(t, ok)
	assert.Equal(t, 1.0, price)
}

func TestLoadFallsBackToStalePersistedSnapshot(t *testing.T) {
	source := &fakeSource{err: errors.New("timeout")}
	store := NewMemoryStore()
	table, clock := newTestTable(source, store)

	require.NoError(t, store.Save(context.Background(), []byte(`{"A": {"price": 3}}`), clock.Now().Add(-48*time.Hour)))

	snap, err := table.Load(context.Background())
	assert.Error(t, err)
	price, ok := snap.Lookup("A", "")
	assert.True(t, ok)
	assert.Equal(t, 3.0, price)
}

func TestLoadWithoutAnySnapshotReturnsEmpty(t *testing.T) {
	source := &fakeSource{err: errors.New("dns failure")}
	table, _ := newTestTable(source, nil)

	snap, err := table.Load(context.Background())
	assert.Error(t, err)
	require.NotNil(t, snap)
	assert.Zero(t, snap.Len())
}

func TestLoadRejectsMalformedIndex(t *testing.T) {
	source := &fakeSource{data: []byte(`not json`)}
	table, _ := newTestTable(source, nil)

	snap, err := table.Load(context.Background())
	assert.Error(t, err)
	assert.Zero(t, snap.Len())
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	source := &fakeSource{
		data:    []byte(`{"A": {"price": 1}}`),
		release: make(chan struct{}),
	}
	table, _ := newTestTable(source, nil)

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := table.Load(context.Background())
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}

	// Let every caller reach the in-flight fetch before releasing it
	require.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load())
	for _, snap := range results {
		assert.Same(t, results[0], snap)
	}
}

func TestLoadReturnsFallbackWhenCallerGivesUp(t *testing.T) {
	source := &fakeSource{
		data:    []byte(`{"A": {"price": 1}}`),
		release: make(chan struct{}),
	}
	table, _ := newTestTable(source, nil)
	defer close(source.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	snap, err := table.Load(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, snap)
	assert.Zero(t, snap.Len())
}

func TestInvalidateForcesRefetch(t *testing.T) {
	source := &fakeSource{data: []byte(`{"A": {"price": 1}}`)}
	store := NewMemoryStore()
	table, _ := newTestTable(source, store)

	_, err := table.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, table.Invalidate(context.Background()))
	_, _, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	source.set(`{"A": {"price": 5}}`, nil)
	snap, err := table.Load(context.Background())
	require.NoError(t, err)
	price, _ := snap.Lookup("A", "")
	assert.Equal(t, 5.0, price)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestInvalidateDuringRefreshDoesNotCacheStaleResult(t *testing.T) {
	source := &fakeSource{
		data:    []byte(`{"A": {"price": 1}}`),
		release: make(chan struct{}),
	}
	store := NewMemoryStore()
	table, _ := newTestTable(source, store)

	done := make(chan *Snapshot)
	go func() {
		snap, err := table.Load(context.Background())
		assert.NoError(t, err)
		done <- snap
	}()

	require.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, table.Invalidate(context.Background()))
	close(source.release)

	// The caller that started the refresh still gets its answer
	first := <-done
	price, _ := first.Lookup("A", "")
	assert.Equal(t, 1.0, price)

	// but it was neither cached nor persisted
	assert.True(t, table.FetchedAt().IsZero())
	_, _, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	source.set(`{"A": {"price": 2}}`, nil)
	snap, err := table.Load(context.Background())
	require.NoError(t, err)
	price, _ = snap.Lookup("A", "")
	assert.Equal(t, 2.0, price)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestFailedRefreshBacksOff(t *testing.T) {
	source := &fakeSource{data: []byte(`{"A": {"price": 1}}`)}
	table, clock := newTestTable(source, nil)

	_, err := table.Load(context.Background())
	require.NoError(t, err)

	source.set("", errors.New("connection refused"))
	clock.Advance(2 * time.Hour)

	_, err = table.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), source.calls.Load())

	// Within the backoff the last good snapshot is served without a fetch
	clock.Advance(30 * time.Second)
	snap, err := table.Load(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	price, ok := snap.Lookup("A", "")
	assert.True(t, ok)
	assert.Equal(t, 1.0, price)
	assert.Equal(t, int32(2), source.calls.Load())

	source.set(`{"A": {"price": 3}}`, nil)
	clock.Advance(DefaultRetryBackoff)
	snap, err = table.Load(context.Background())
	require.NoError(t, err)
	price, _ = snap.Lookup("A", "")
	assert.Equal(t, 3.0, price)
	assert.Equal(t, int32(3), source.calls.Load())
}

func TestInvalidateClearsBackoff(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	table, _ := newTestTable(source, nil)

	_, err := table.Load(context.Background())
	require.Error(t, err)

	source.set(`{"A": {"price": 4}}`, nil)
	require.NoError(t, table.Invalidate(context.Background()))

	snap, err := table.Load(context.Background())
	require.NoError(t, err)
	price, _ := snap.Lookup("A", "")
	assert.Equal(t, 4.0, price)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestInvalidateKeepsLastGoodForLookups(t *testing.T) {
	source := &fakeSource{data: []byte(`{"A": {"price": 1}}`)}
	table, _ := newTestTable(source, nil)

	_, err := table.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, table.Invalidate(context.Background()))

	assert.True(t, table.FetchedAt().IsZero())
	price, ok := table.Lookup("A", "")
	assert.True(t, ok)
	assert.Equal(t, 1.0, price)
}
