// internal/cache/memory.go
package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value   []byte
	object  any
	expires time.Time // zero: never
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expires.IsZero() && !now.Before(i.expires)
}

// MemoryStore is a process-local Store and ObjectStore. Expired entries are
// invisible to readers immediately and removed by a background sweep.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]*memoryItem
	closed bool
	now    func() time.Time

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryStore creates a store sweeping expired entries every
// cleanupInterval. A non-positive interval disables the sweep.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*memoryItem),
		now:   time.Now,
		done:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.sweep(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	item, ok := s.items[key]
	if !ok || item.expired(s.now()) || item.object != nil {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	item := &memoryItem{value: make([]byte, len(value))}
	copy(item.value, value)
	if ttl > 0 {
		item.expires = s.now().Add(ttl)
	}
	s.items[key] = item
	return nil
}

// GetObject returns a value stored with SetObject. Byte entries miss.
func (s *MemoryStore) GetObject(_ context.Context, key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	item, ok := s.items[key]
	if !ok || item.expired(s.now()) || item.object == nil {
		return nil, ErrKeyNotFound
	}
	return item.object, nil
}

// SetObject stores value as is. Callers must not mutate it afterwards.
func (s *MemoryStore) SetObject(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	item := &memoryItem{object: value}
	if ttl > 0 {
		item.expires = s.now().Add(ttl)
	}
	s.items[key] = item
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	now := s.now()
	removed := 0
	for _, key := range keys {
		if item, ok := s.items[key]; ok {
			if !item.expired(now) {
				removed++
			}
			delete(s.items, key)
		}
	}
	return removed, nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	now := s.now()
	keys := make([]string, 0, len(s.items))
	for key, item := range s.items {
		if !item.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Len counts live entries.
func (s *MemoryStore) Len() int {
	keys, _ := s.Keys(context.Background())
	return len(keys)
}

// Close stops the sweep and drops all entries. Safe to call twice.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*memoryItem)
	s.closed = true
	return nil
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, item := range s.items {
		if item.expired(now) {
			delete(s.items, key)
		}
	}
}
