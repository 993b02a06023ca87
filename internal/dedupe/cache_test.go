// ABOUTME: Tests for the dedupe result cache used for replayed control requests
// ABOUTME: Validates TTL expiration, size limits, eviction, cleanup and concurrency

package dedupe

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(ttl time.Duration, maxSize int) (*Cache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](ttl, maxSize)
	c.now = clock.Now
	return c, clock
}

func TestCache_LookupNotSeen(t *testing.T) {
	cache, _ := newTestCache(5*time.Minute, 100)
	defer cache.Close()

	_, ok := cache.Lookup("never-seen")
	assert.False(t, ok)
}

func TestCache_RememberFirstWins(t *testing.T) {
	cache, _ := newTestCache(5*time.Minute, 100)
	defer cache.Close()

	got, dup := cache.Remember("req-1", "first")
	assert.False(t, dup)
	assert.Equal(t, "first", got)

	got, dup = cache.Remember("req-1", "second")
	assert.True(t, dup)
	assert.Equal(t, "first", got, "duplicate returns the original result")

	v, ok := cache.Lookup("req-1")
	assert.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestCache_Expiry(t *testing.T) {
	cache, clock := newTestCache(5*time.Minute, 100)
	defer cache.Close()

	cache.Remember("req-1", "first")
	clock.Advance(5 * time.Minute)

	_, ok := cache.Lookup("req-1")
	assert.False(t, ok, "entry at exactly the TTL is expired")

	got, dup := cache.Remember("req-1", "again")
	assert.False(t, dup)
	assert.Equal(t, "again", got)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	cache, clock := newTestCache(time.Hour, 3)
	defer cache.Close()

	for _, k := range []string{"a", "b", "c"} {
		cache.Remember(k, k)
		clock.Advance(time.Second)
	}
	cache.Remember("d", "d")

	assert.Equal(t, 3, cache.Len())
	_, ok := cache.Lookup("a")
	assert.False(t, ok, "oldest entry evicted")
	for _, k := range []string{"b", "c", "d"} {
		_, ok := cache.Lookup(k)
		assert.True(t, ok, k)
	}
}

func TestCache_RunCleanup(t *testing.T) {
	cache, clock := newTestCache(time.Minute, 100)
	defer cache.Close()

	cache.Remember("old", "x")
	clock.Advance(2 * time.Minute)
	cache.Remember("fresh", "y")

	cache.runCleanup()

	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Lookup("fresh")
	assert.True(t, ok)
}

func TestCache_CloseIdempotent(t *testing.T) {
	cache := New[int](time.Minute, 10)
	cache.Close()
	cache.Close()
}

func TestCache_ConcurrentRememberAppliesOnce(t *testing.T) {
	cache := New[int](time.Minute, 1000)
	defer cache.Close()

	var firsts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, dup := cache.Remember("shared", n); !dup {
				firsts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), firsts.Load())
}
