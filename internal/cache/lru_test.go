package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(capacity int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewLRUCache[string](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	c.Set("a", "2")
	v, _ = c.Get("a")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.Size())

	hits, misses, rate := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 2.0/3.0, rate, 1e-9)
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(2, 0)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a становится самой свежей
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(0, time.Minute)

	c.Set("short", "x")
	c.SetWithTTL("long", "y", time.Hour)
	c.SetWithTTL("forever", "z", 0)

	clock.Advance(2 * time.Minute)

	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, c.Clean())
	_, ok = c.Get("forever")
	assert.True(t, ok)
}

func TestLRUCache_Has(t *testing.T) {
	c, clock := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("missing"))

	// Has не продлевает позицию в LRU: вытесняется a
	c.Set("c", "3")
	assert.False(t, c.Has("a"))

	hits, misses, _ := c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)

	clock.Advance(2 * time.Minute)
	assert.False(t, c.Has("b"))
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_CleanScansWholeList(t *testing.T) {
	c, clock := newTestCache(0, time.Minute)

	c.Set("old", "1")
	clock.Advance(30 * time.Second)
	c.Set("new", "2")
	// old перемещается в начало списка, но его TTL не продлевается
	c.Get("old")

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, c.Clean())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestLRUCache_DeleteClear(t *testing.T) {
	c, _ := newTestCache(0, 0)
	c.Set("a", "1")
	c.Set("b", "2")

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_StartCleaner(t *testing.T) {
	c := NewLRUCache[int](0, time.Millisecond)
	c.Set("a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartCleaner(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*500+i)%150)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 100)
}
