package kv

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/common"
)

type memoryRecord struct {
	value     string
	expiresAt time.Time
}

func (r memoryRecord) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && !now.Before(r.expiresAt)
}

// MemoryStore keeps records in a map. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryRecord
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryRecord), now: time.Now}
}

// NewMemoryNamespaces returns three independent memory stores.
func NewMemoryNamespaces() *Namespaces {
	return &Namespaces{
		Secrets:  NewMemoryStore(),
		Sessions: NewMemoryStore(),
		Audit:    NewMemoryStore(),
	}
}

// SetClock replaces the time source; tests use it to expire records.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) record(value string, ttl time.Duration) memoryRecord {
	r := memoryRecord{value: value}
	if ttl > 0 {
		r.expiresAt = s.now().Add(ttl)
	}
	return r
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[key]
	if !ok || r.expired(s.now()) {
		return "", common.ErrNotFound
	}
	return r.value, nil
}

func (s *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = s.record(value, ttl)
	return nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.data[key]; ok && !r.expired(s.now()) {
		return false, nil
	}
	s.data[key] = s.record(value, ttl)
	return true, nil
}

func (s *MemoryStore) PutMany(_ context.Context, items []Item, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		s.data[it.Key] = s.record(it.Value, ttl)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	keys := make([]string, 0)
	for k, r := range s.data {
		if strings.HasPrefix(k, prefix) && !r.expired(now) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
