package storage

import (
	"context"
	"sync"
)

// Memory is an in-process [Backend]. The zero value is not usable; call [NewMemory].
type Memory struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get returns the present subset of keys.
func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Apply runs the batch under a single write lock.
func (m *Memory) Apply(ctx context.Context, batch Batch) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for _, k := range batch.Delete {
		delete(m.data, k)
	}
	for k, v := range batch.Set {
		m.data[k] = v
	}
	return nil
}

// Snapshot returns a copy of every stored pair.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// Close marks the backend closed. Data is discarded.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
