package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements [Store].
func (m *MemoryStore) Load(context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, ErrNotFound
	}
	return cloneRecord(m.rec), nil
}

// Save implements [Store].
func (m *MemoryStore) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = cloneRecord(rec)
	return nil
}

// Clear implements [Store].
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
