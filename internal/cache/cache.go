// Package cache keeps rendered frames in memory. Entries are bounded by
// total size and age and evicted by a configurable strategy.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrTooLarge is returned by Put when a single entry exceeds the cache size
var ErrTooLarge = errors.New("cache: entry larger than cache")

// Cache stores byte payloads by key. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	maxSize  int64
	maxAge   time.Duration
	strategy EvictionStrategy
	stats    Stats
	now      func() time.Time
}

// Entry is a single cached payload
type Entry struct {
	Key         string
	Data        []byte
	Size        int64
	Created     time.Time
	LastAccess  time.Time
	AccessCount int
}

// Stats tracks cache performance
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines how cache entries are removed
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

// Config holds cache configuration
type Config struct {
	MaxSize  int64            // Maximum total payload size in bytes; <= 0 means unbounded
	MaxAge   time.Duration    // Maximum entry age; <= 0 means entries never expire
	Strategy EvictionStrategy // Eviction strategy (default: LRU)
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxSize:  32 << 20,
		MaxAge:   10 * time.Minute,
		Strategy: LRU,
	}
}

// New creates a cache
func New(config Config) *Cache {
	return &Cache{
		entries:  make(map[string]*Entry),
		maxSize:  config.MaxSize,
		maxAge:   config.MaxAge,
		strategy: config.Strategy,
		now:      time.Now,
	}
}

// Get returns the payload stored under key. Callers must not modify it.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && c.isExpired(entry) {
		c.removeLocked(key)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccess = c.now()
	entry.AccessCount++
	c.stats.Hits++
	return entry.Data, true
}

// Put stores data under key, replacing any previous payload and evicting
// entries until it fits
func (c *Cache) Put(key string, data []byte) error {
	size := int64(len(data))
	if c.maxSize > 0 && size > c.maxSize {
		return ErrTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	c.ensureSpace(size)

	now := c.now()
	c.entries[key] = &Entry{
		Key:        key,
		Data:       data,
		Size:       size,
		Created:    now,
		LastAccess: now,
	}
	c.stats.TotalSize += size
	c.stats.EntryCount = len(c.entries)
	return nil
}

// GetOrCreate returns the payload under key, calling create and storing its
// result on a miss. Concurrent misses may each call create.
func (c *Cache) GetOrCreate(key string, create func() ([]byte, error)) ([]byte, bool, error) {
	if data, ok := c.Get(key); ok {
		return data, true, nil
	}
	data, err := create()
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(key, data); err != nil && !errors.Is(err, ErrTooLarge) {
		return nil, false, err
	}
	return data, false, nil
}

// Delete removes an entry from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear removes all entries and resets the statistics
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.stats = Stats{}
}

// GetStats returns cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Key generates a cache key from inputs. Inputs are length-prefixed so
// ("ab", "c") and ("a", "bc") differ.
func Key(inputs ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, input := range inputs {
		l := uint64(len(input))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(input))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) isExpired(entry *Entry) bool {
	if c.maxAge <= 0 {
		return false
	}
	return c.now().Sub(entry.Created) > c.maxAge
}

func (c *Cache) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	c.stats.TotalSize -= entry.Size
	c.stats.EntryCount = len(c.entries)
}

// ensureSpace evicts entries until needed more bytes fit. Expired entries
// go first.
func (c *Cache) ensureSpace(needed int64) {
	if c.maxSize <= 0 {
		return
	}
	if c.stats.TotalSize+needed > c.maxSize {
		for key, entry := range c.entries {
			if c.isExpired(entry) {
				c.removeLocked(key)
				c.stats.Evictions++
			}
		}
	}

	for c.stats.TotalSize+needed > c.maxSize && len(c.entries) > 0 {
		key := c.victim()
		c.removeLocked(key)
		c.stats.Evictions++
	}
}

// victim picks the entry to evict according to the strategy. Ties go to
// the smaller key so eviction is deterministic.
func (c *Cache) victim() string {
	var best *Entry
	worse := func(e *Entry) bool {
		switch c.strategy {
		case LFU:
			if e.AccessCount != best.AccessCount {
				return e.AccessCount < best.AccessCount
			}
		case FIFO:
			if !e.Created.Equal(best.Created) {
				return e.Created.Before(best.Created)
			}
		default:
			if !e.LastAccess.Equal(best.LastAccess) {
				return e.LastAccess.Before(best.LastAccess)
			}
		}
		return e.Key < best.Key
	}
	for _, e := range c.entries {
		if best == nil || worse(e) {
			best = e
		}
	}
	return best.Key
}
