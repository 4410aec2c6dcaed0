package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/satfarm/farmcarbon/internal/ndvi"
)

// Memory is an in-process Cache. Values are copied on the way in and out.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*ndvi.ChangeResult
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]*ndvi.ChangeResult)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, farmerID string) (*ndvi.ChangeResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.items[farmerID]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, farmerID string, result *ndvi.ChangeResult) error {
	if result == nil {
		return errors.New("snapshot: nil result")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[farmerID] = result.Clone()
	return nil
}

// Len returns the number of stored snapshots.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
