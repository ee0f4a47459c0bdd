package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// fakeStore implements driven.CacheStore for testing.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	saveErr error
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]domain.CacheEntry)}
}

func (s *fakeStore) SaveEntry(_ context.Context, entry *domain.CacheEntry) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ContentHash] = *entry
	return nil
}

func (s *fakeStore) DeleteEntries(_ context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hashes {
		delete(s.entries, h)
	}
	return nil
}

func (s *fakeStore) LoadEntries(_ context.Context) ([]domain.CacheEntry, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.CacheEntry)
	return nil
}

// tickingClock returns a now() that advances one second per call.
func tickingClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestCache(t *testing.T, settings domain.CacheSettings) *Cache {
	t.Helper()
	c, err := New(settings, nil)
	require.NoError(t, err)
	c.now = tickingClock()
	return c
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, domain.CacheSettings{})
	ctx := context.Background()

	vec := []float32{0.1, 0.2, 0.3}
	require.NoError(t, c.Put(ctx, "hello world", "model-a", vec))

	got, ok := c.Get(ctx, "hello world", "model-a")
	require.True(t, ok)
	assert.Equal(t, vec, got)

	// Different model is a different key.
	_, ok = c.Get(ctx, "hello world", "model-b")
	assert.False(t, ok)
}

func TestCache_PutEmptyEmbedding(t *testing.T) {
	c := newTestCache(t, domain.CacheSettings{})
	err := c.Put(context.Background(), "text", "model", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCache_LRUEviction(t *testing.T) {
	c := newTestCache(t, domain.CacheSettings{
		Policy:     domain.EvictLRU,
		MaxEntries: 2,
	})
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", "m", []float32{1}))
	require.NoError(t, c.Put(ctx, "b", "m", []float32{2}))

	// Touch "a" so "b" becomes least recently used.
	_, ok := c.Get(ctx, "a", "m")
	require.True(t, ok)

	require.NoError(t, c.Put(ctx, "c", "m", []float32{3}))

	_, ok = c.Get(ctx, "b", "m")
	assert.False(t, ok, "least-recently-used entry should be evicted")
	_, ok = c.Get(ctx, "a", "m")
	assert.True(t, ok, "recently used entry should survive")
	_, ok = c.Get(ctx, "c", "m")
	assert.True(t, ok, "new entry should survive")
}

func TestCache_SizeEviction(t *testing.T) {
	big := make([]float32, 100)
	small := []float32{1}

	// Budget fits the small entry plus a little; the big one must go first.
	c := newTestCache(t, domain.CacheSettings{
		Policy:   domain.EvictSize,
		MaxBytes: 300,
	})
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "big", "m", big))
	require.NoError(t, c.Put(ctx, "small", "m", small))

	_, ok := c.Get(ctx, "big", "m")
	assert.False(t, ok, "largest entry should be evicted first")
	_, ok = c.Get(ctx, "small", "m")
	assert.True(t, ok)
}

func TestCache_TTLSweep(t *testing.T) {
	c := newTestCache(t, domain.CacheSettings{
		Policy: domain.EvictTTL,
		TTL:    2 * time.Second,
	})
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "old", "m", []float32{1}))

	// Advance the clock well past the TTL.
	for i := 0; i < 5; i++ {
		c.now()
	}

	swept := c.SweepExpired(ctx)
	assert.Equal(t, 1, swept)

	_, ok := c.Get(ctx, "old", "m")
	assert.False(t, ok)
}

func TestCache_Stats(t *testing.T) {
	c := newTestCache(t, domain.CacheSettings{})
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", "m", []float32{1, 2}))

	c.Get(ctx, "a", "m")    // hit
	c.Get(ctx, "gone", "m") // miss
	c.Get(ctx, "a", "m")    // hit

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.Positive(t, stats.SizeBytes)
}

func TestCache_Clear(t *testing.T) {
	store := newFakeStore()
	c, err := New(domain.CacheSettings{}, store)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", "m", []float32{1}))
	require.NoError(t, c.Clear(ctx))

	_, ok := c.Get(ctx, "a", "m")
	assert.False(t, ok)
	assert.Empty(t, store.entries)
}

func TestCache_WarmsFromStore(t *testing.T) {
	store := newFakeStore()
	first, err := New(domain.CacheSettings{}, store)
	require.NoError(t, err)
	ctx := context.Background()

	vec := []float32{4, 5, 6}
	require.NoError(t, first.Put(ctx, "persisted", "m", vec))

	// A fresh cache over the same store sees the entry.
	second, err := New(domain.CacheSettings{}, store)
	require.NoError(t, err)

	got, ok := second.Get(ctx, "persisted", "m")
	require.True(t, ok)
	assert.Equal(t, vec, got)
}

func TestCache_StoreFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	c, err := New(domain.CacheSettings{}, store)
	require.NoError(t, err)
	ctx := context.Background()

	store.saveErr = errors.New("disk full")

	// Put still succeeds in memory.
	require.NoError(t, c.Put(ctx, "a", "m", []float32{1}))
	got, ok := c.Get(ctx, "a", "m")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, got)
}

func TestCache_LoadFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("corrupt db")

	_, err := New(domain.CacheSettings{}, store)
	assert.Error(t, err)
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key("text", "model"), Key("text", "model"))
	assert.NotEqual(t, Key("text", "model-a"), Key("text", "model-b"))
	assert.NotEqual(t, Key("text-a", "model"), Key("text-b", "model"))
}
