package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a manual time source
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(config Config) (*Cache, *clock) {
	c := New(config)
	clk := &clock{t: time.Unix(1000, 0)}
	c.now = clk.now
	return c, clk
}

func TestCache_GetPut(t *testing.T) {
	c, _ := newTestCache(Config{MaxSize: 1 << 20})

	require.NoError(t, c.Put("k", []byte("data")))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("data"), got)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(4), stats.TotalSize)
	assert.Equal(t, 1, stats.EntryCount)
}

func TestCache_ReplaceUpdatesSize(t *testing.T) {
	c, _ := newTestCache(Config{MaxSize: 100})

	require.NoError(t, c.Put("k", make([]byte, 10)))
	require.NoError(t, c.Put("k", make([]byte, 30)))

	stats := c.GetStats()
	assert.Equal(t, int64(30), stats.TotalSize)
	assert.Equal(t, 1, stats.EntryCount)
	assert.Zero(t, stats.Evictions)
}

func TestCache_TooLarge(t *testing.T) {
	c, _ := newTestCache(Config{MaxSize: 8})
	assert.ErrorIs(t, c.Put("k", make([]byte, 9)), ErrTooLarge)
	assert.Zero(t, c.GetStats().EntryCount)
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache(Config{MaxAge: time.Minute})

	require.NoError(t, c.Put("k", []byte("v")))
	clk.advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clk.advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.GetStats().EntryCount)
}

func TestCache_Eviction(t *testing.T) {
	tests := []struct {
		name     string
		strategy EvictionStrategy
		evicted  string
	}{
		// a is oldest, b is read least recently, c is read least often
		{"lru", LRU, "b"},
		{"lfu", LFU, "c"},
		{"fifo", FIFO, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clk := newTestCache(Config{MaxSize: 30, Strategy: tt.strategy})
			for _, k := range []string{"a", "b", "c"} {
				require.NoError(t, c.Put(k, make([]byte, 10)))
				clk.advance(time.Second)
			}
			c.Get("b")
			clk.advance(time.Second)
			c.Get("b")
			clk.advance(time.Second)
			c.Get("a")
			c.Get("a")
			clk.advance(time.Second)
			c.Get("c")

			require.NoError(t, c.Put("d", make([]byte, 10)))

			stats := c.GetStats()
			assert.Equal(t, int64(1), stats.Evictions)
			assert.Equal(t, int64(30), stats.TotalSize)
			for _, k := range []string{"a", "b", "c", "d"} {
				_, ok := c.Get(k)
				assert.Equal(t, k != tt.evicted, ok, k)
			}
		})
	}
}

func TestCache_EvictsExpiredFirst(t *testing.T) {
	c, clk := newTestCache(Config{MaxSize: 20, MaxAge: time.Minute})

	require.NoError(t, c.Put("old", make([]byte, 10)))
	clk.advance(2 * time.Minute)
	require.NoError(t, c.Put("fresh", make([]byte, 10)))
	c.Get("fresh")

	require.NoError(t, c.Put("new", make([]byte, 10)))
	_, ok := c.Get("fresh")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestCache_GetOrCreate(t *testing.T) {
	c, _ := newTestCache(Config{MaxSize: 100})

	calls := 0
	create := func() ([]byte, error) {
		calls++
		return []byte("frame"), nil
	}

	data, hit, err := c.GetOrCreate("k", create)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "frame", string(data))

	data, hit, err = c.GetOrCreate("k", create)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "frame", string(data))
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, _, err = c.GetOrCreate("other", func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("other")
	assert.False(t, ok)
}

func TestCache_GetOrCreateTooLarge(t *testing.T) {
	c, _ := newTestCache(Config{MaxSize: 4})

	data, hit, err := c.GetOrCreate("k", func() ([]byte, error) { return []byte("too large"), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "too large", string(data))
	assert.Zero(t, c.GetStats().EntryCount)
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(Config{})
	require.NoError(t, c.Put("k", []byte("v")))
	c.Get("k")
	c.Delete("missing")

	c.Clear()
	assert.Equal(t, Stats{}, c.GetStats())
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key(), 64)
}

func TestCache_Concurrent(t *testing.T) {
	c := New(Config{MaxSize: 1 << 10})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", (i*j)%50)
				c.GetOrCreate(key, func() ([]byte, error) { return make([]byte, 32), nil })
			}
		}(i)
	}
	wg.Wait()

	stats := c.GetStats()
	assert.LessOrEqual(t, stats.TotalSize, int64(1<<10))
	assert.Equal(t, int64(8*200), stats.Hits+stats.Misses)
}
