// Package memory is the in-process cache used when Redis is not configured.
// Keys are bounded by an LRU so history for deleted jobs ages out.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "cronkeeper/internal/cache/iface"
	"cronkeeper/internal/logger"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultMaxKeys bounds the number of keys kept in memory
const DefaultMaxKeys = 4096

type item struct {
	value     string
	list      []string
	expiresAt time.Time
}

func (i *item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

type memoryCache struct {
	mu     sync.Mutex
	items  *lru.Cache
	now    func() time.Time
	logger logger.Logger
}

// NewMemoryCache creates a cache holding at most maxKeys keys
func NewMemoryCache(maxKeys int, log logger.Logger) (cache.Cache, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	items, err := lru.New(maxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	log.Info("using in-memory cache", logger.Int("max_keys", maxKeys))

	return &memoryCache{
		items:  items,
		now:    time.Now,
		logger: log.With(logger.String("component", "memory_cache")),
	}, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it := &item{value: toString(value)}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.items.Add(key, it)
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.lookup(key)
	if !ok || it.list != nil {
		return "", fmt.Errorf("%w: %s", cache.ErrKeyNotFound, key)
	}
	return it.value, nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Remove(key)
	return nil
}

func (m *memoryCache) RPush(_ context.Context, key string, values ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.lookup(key)
	if !ok {
		it = &item{list: make([]string, 0, len(values))}
	}
	for _, v := range values {
		it.list = append(it.list, toString(v))
	}
	m.items.Add(key, it)
	return nil
}

// LRange follows Redis index semantics, including negative offsets from the tail
func (m *memoryCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.lookup(key)
	if !ok {
		return []string{}, nil
	}
	lo, hi := bounds(int64(len(it.list)), start, stop)
	out := make([]string, hi-lo)
	copy(out, it.list[lo:hi])
	return out, nil
}

func (m *memoryCache) LTrim(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.lookup(key)
	if !ok {
		return nil
	}
	lo, hi := bounds(int64(len(it.list)), start, stop)
	if lo == hi {
		m.items.Remove(key)
		return nil
	}
	trimmed := make([]string, hi-lo)
	copy(trimmed, it.list[lo:hi])
	it.list = trimmed
	return nil
}

func (m *memoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.Purge()
	return nil
}

func (m *memoryCache) lookup(key string) (*item, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	it := v.(*item)
	if it.expired(m.now()) {
		m.items.Remove(key)
		return nil, false
	}
	return it, true
}

// bounds converts inclusive Redis indexes into a half-open slice range
func bounds(length, start, stop int64) (int64, int64) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return 0, 0
	}
	return start, stop + 1
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
