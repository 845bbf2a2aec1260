package cache

import (
	"context"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

// Memory is a process-wide cache. Keys are spread over independently locked
// shards so operations on different keys rarely contend.
type Memory struct {
	shards [shardCount]*shard
	seed   maphash.Seed
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// MemoryOption customises a Memory cache.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithJanitor purges expired entries every interval until Close is called.
func WithJanitor(interval time.Duration) MemoryOption {
	return func(m *Memory) {
		if interval <= 0 {
			return
		}
		m.wg.Add(1)
		go m.janitor(interval)
	}
}

// NewMemory creates an empty in-process cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		seed: maphash.MakeSeed(),
		now:  time.Now,
		done: make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]models.CacheEntry)}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) shardFor(key string) *shard {
	return m.shards[maphash.String(m.seed, key)%shardCount]
}

// Get retrieves a value. Expired entries read as misses.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || e.Expired(m.now()) {
		m.misses.Add(1)
		return "", false
	}
	m.hits.Add(1)
	return e.Value, true
}

// Put stores a value with an absolute expiry of now+ttl.
func (m *Memory) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s := m.shardFor(key)
	s.mu.Lock()
	s.entries[key] = models.CacheEntry{Key: key, Value: value, ExpiresAt: m.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes a key.
func (m *Memory) Delete(_ context.Context, key string) error {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Stats counts live entries and reports hit/miss counters.
func (m *Memory) Stats(_ context.Context) (models.CacheStats, error) {
	now := m.now()
	var n int64
	for _, s := range m.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			if !e.Expired(now) {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return models.CacheStats{Entries: n, Hits: m.hits.Load(), Misses: m.misses.Load()}, nil
}

// Purge drops expired entries and returns how many were removed.
func (m *Memory) Purge() int {
	now := m.now()
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if e.Expired(now) {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Close stops the janitor. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
	return nil
}

func (m *Memory) janitor(interval time.Duration) {
	defer m.wg.Done()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-tick.C:
			m.Purge()
		}
	}
}
