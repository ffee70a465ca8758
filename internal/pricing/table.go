package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a fetched index is served before refetching
	DefaultTTL = 6 * time.Hour
	// DefaultRetryBackoff is how long a failed refresh is remembered before
	// the next Load tries the source again
	DefaultRetryBackoff = time.Minute

	loadKey = "load"
)

type cachedSnapshot struct {
	snapshot  *Snapshot
	fetchedAt time.Time
}

type failedRefresh struct {
	at  time.Time
	err error
}

// Table is the process-wide cache of the external price index. Readers only
// ever see complete snapshots: a refresh swaps the pointer, it never edits a
// snapshot in place.
type Table struct {
	source       Source
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	retryBackoff time.Duration
	now          func() time.Time

	group    singleflight.Group
	current  atomic.Pointer[cachedSnapshot]
	lastGood atomic.Pointer[Snapshot]
	failure  atomic.Pointer[failedRefresh]

	// commitMu orders a refresh publishing its result against Invalidate.
	// generation changes on every Invalidate; a refresh started under an
	// older generation does not publish.
	commitMu   sync.Mutex
	generation atomic.Uint64
}

// Option configures a Table
type Option func(*Table)

// WithTTL sets how long a snapshot stays fresh
func WithTTL(ttl time.Duration) Option {
	return func(t *Table) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds one refresh (persisted read, fetch and save)
func WithFetchTimeout(timeout time.Duration) Option {
	return func(t *Table) {
		if timeout > 0 {
			t.fetchTimeout = timeout
		}
	}
}

// WithRetryBackoff sets how long a failed refresh suppresses new fetches
func WithRetryBackoff(d time.Duration) Option {
	return func(t *Table) {
		if d > 0 {
			t.retryBackoff = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		t.now = now
	}
}

// NewTable creates a price table. A nil store keeps snapshots in memory only.
func NewTable(source Source, store Store, opts ...Option) *Table {
	if store == nil {
		store = NewMemoryStore()
	}
	t := &Table{
		source:       source,
		store:        store,
		ttl:          DefaultTTL,
		fetchTimeout: 30 * time.Second,
		retryBackoff: DefaultRetryBackoff,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load returns the current snapshot, refreshing it when it is older than the
// TTL. Concurrent callers share one refresh. Load never returns a nil
// snapshot: when the refresh fails it serves the last good snapshot, or an
// empty one, and reports the failure through err. After a failure the source
// is not asked again until the retry backoff has passed.
func (t *Table) Load(ctx context.Context) (*Snapshot, error) {
	if c := t.current.Load(); c != nil && t.fresh(c.fetchedAt) {
		return c.snapshot, nil
	}
	if f := t.failure.Load(); f != nil && t.now().Sub(f.at) < t.retryBackoff {
		return t.fallback(), fmt.Errorf("price index unavailable since %s: %w", f.at.Format(time.RFC3339), f.err)
	}

	ch := t.group.DoChan(loadKey, func() (interface{}, error) {
		return t.refresh()
	})

	select {
	case res := <-ch:
		return res.Val.(*Snapshot), res.Err
	case <-ctx.Done():
		return t.fallback(), ctx.Err()
	}
}

// Lookup resolves a price against the current snapshot without refreshing it
func (t *Table) Lookup(name, phase string) (float64, bool) {
	return t.Current().Lookup(name, phase)
}

// Current returns the snapshot Lookup reads from
func (t *Table) Current() *Snapshot {
	if c := t.current.Load(); c != nil {
		return c.snapshot
	}
	return t.fallback()
}

// FetchedAt returns when the current snapshot was fetched, zero if none is loaded
func (t *Table) FetchedAt() time.Time {
	if c := t.current.Load(); c != nil {
		return c.fetchedAt
	}
	return time.Time{}
}

// Invalidate discards the cached snapshot so the next Load refetches. A
// refresh already in flight still answers its callers but is not cached.
// The last good snapshot is kept in memory as a fallback.
func (t *Table) Invalidate(ctx context.Context) error {
	t.commitMu.Lock()
	defer t.commitMu.Unlock()

	t.generation.Add(1)
	t.current.Store(nil)
	t.failure.Store(nil)
	t.group.Forget(loadKey)

	if err := t.store.Clear(ctx); err != nil {
		return fmt.Errorf("invalidating price table: %w", err)
	}
	return nil
}

func (t *Table) fresh(fetchedAt time.Time) bool {
	return t.now().Sub(fetchedAt) < t.ttl
}

func (t *Table) fallback() *Snapshot {
	if s := t.lastGood.Load(); s != nil {
		return s
	}
	return EmptySnapshot()
}

// refresh runs detached from any single caller so that one cancelled
// request does not fail the fetch shared with the others
func (t *Table) refresh() (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.fetchTimeout)
	defer cancel()

	gen := t.generation.Load()
	if c := t.current.Load(); c != nil && t.fresh(c.fetchedAt) {
		return c.snapshot, nil
	}

	data, fetchedAt, err := t.store.Load(ctx)
	switch {
	case err == nil:
		snap, err := DecodeSnapshot(data)
		if err != nil {
			log.Printf("Warning: discarding persisted price snapshot: %v", err)
			break
		}
		t.lastGood.Store(snap)
		if t.fresh(fetchedAt) {
			t.commit(ctx, gen, snap, fetchedAt, nil)
			return snap, nil
		}
	case !errors.Is(err, ErrNoSnapshot):
		log.Printf("Warning: could not read persisted price snapshot: %v", err)
	}

	data, err = t.source.Fetch(ctx)
	if err != nil {
		err = fmt.Errorf("fetching price index: %w", err)
		t.fail(gen, err)
		return t.fallback(), err
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.fail(gen, err)
		return t.fallback(), err
	}

	t.lastGood.Store(snap)
	if t.commit(ctx, gen, snap, t.now(), data) {
		log.Printf("Loaded price index with %d entries", snap.Len())
	}
	return snap, nil
}

// commit publishes snap as the current snapshot and, when data is given,
// persists it. It does nothing if the table was invalidated since gen.
func (t *Table) commit(ctx context.Context, gen uint64, snap *Snapshot, fetchedAt time.Time, data []byte) bool {
	t.commitMu.Lock()
	defer t.commitMu.Unlock()

	if t.generation.Load() != gen {
		log.Printf("Warning: price table invalidated during refresh, not caching result")
		return false
	}

	if data != nil {
		if err := t.store.Save(ctx, data, fetchedAt); err != nil {
			log.Printf("Warning: could not persist price snapshot: %v", err)
		}
	}
	t.current.Store(&cachedSnapshot{snapshot: snap, fetchedAt: fetchedAt})
	t.failure.Store(nil)
	return true
}

func (t *Table) fail(gen uint64, err error) {
	if t.generation.Load() != gen {
		return
	}
	t.failure.Store(&failedRefresh{at: t.now(), err: err})
}
