package config

import (
	"context"
	"sync"
)

// MemoryProvider serves a mapping held in memory. Values are copied in and
// out so callers cannot change it behind the provider's back.
type MemoryProvider struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryProvider returns a provider serving a copy of values.
func NewMemoryProvider(values map[string]any) *MemoryProvider {
	v := deepCopyMap(values)
	if v == nil {
		v = map[string]any{}
	}
	return &MemoryProvider{values: v}
}

func (m *MemoryProvider) Name() string { return "memory" }

func (m *MemoryProvider) Load(context.Context) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deepCopyMap(m.values), nil
}

// Set stores a copy of value under key.
func (m *MemoryProvider) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = deepCopy(value)
}

// Delete removes key.
func (m *MemoryProvider) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
