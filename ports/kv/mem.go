package kv

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

type memEntry struct {
	Entry
	expires time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

type MemStore struct {
	mu   sync.RWMutex
	data map[string]memEntry
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]memEntry{}}
}

func (m *MemStore) Put(_ context.Context, key string, entry Entry, opts PutOptions) error {
	if key == "" {
		return ErrInvalidKey
	}
	e := memEntry{Entry: Entry{Data: slices.Clone(entry.Data), Meta: maps.Clone(entry.Meta)}}
	if opts.TTL > 0 {
		e.expires = time.Now().Add(opts.TTL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = e
	return nil
}

func (m *MemStore) Get(_ context.Context, key string) (entry Entry, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || e.expired(time.Now()) {
		return entry, ErrNotFound
	}

	return e.Entry, nil
}

func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	keys := make([]string, 0, len(m.data))
	for k, e := range m.data {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

var _ Store = (*MemStore)(nil)
