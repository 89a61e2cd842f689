package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory Backend. Its contents live as long as the
// process, which makes it the session store.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	size     int
	capacity int
	closed   bool
}

// MemoryOption configures a Memory backend.
type MemoryOption func(*Memory)

// WithCapacity limits the total bytes (keys plus values) the backend
// accepts. Writes beyond it fail with ErrQuotaExceeded.
func WithCapacity(bytes int) MemoryOption {
	return func(m *Memory) {
		m.capacity = bytes
	}
}

// NewMemory creates an empty in-memory backend.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get retrieves a copy of the value stored under key
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	size := m.size + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		size -= len(key) + len(old)
	}
	if m.capacity > 0 && size > m.capacity {
		return ErrQuotaExceeded
	}

	m.data[key] = append([]byte(nil), value...)
	m.size = size
	return nil
}

// Delete removes key if present
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if old, ok := m.data[key]; ok {
		m.size -= len(key) + len(old)
		delete(m.data, key)
	}
	return nil
}

// Keys returns all keys in sorted order
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close drops all data, as a session ending would.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	m.size = 0
	m.closed = true
	return nil
}
