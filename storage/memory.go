package storage

import (
	"context"
	"sync"
	"time"

	"github.com/alexjbarnes/apiconfig/auth"
)

// cleanupInterval is how often expired tokens are removed from memory.
const cleanupInterval = time.Minute

// Memory keeps tokens in process memory. Tokens whose expiry has passed
// are not returned and are removed by a background goroutine until Close.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]auth.TokenData
	now    func() time.Time

	stopGC   chan struct{}
	stopOnce sync.Once
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{
		tokens: make(map[string]auth.TokenData),
		now:    time.Now,
		stopGC: make(chan struct{}),
	}
	go m.gcLoop()
	return m
}

func (m *Memory) gcLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopGC:
			return
		}
	}
}

// cleanup removes all expired tokens.
func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, data := range m.tokens {
		if m.expired(data) {
			delete(m.tokens, k)
		}
	}
}

func (m *Memory) expired(data auth.TokenData) bool {
	exp := data.ExpiresAt()
	return !exp.IsZero() && !m.now().Before(exp)
}

func (m *Memory) Save(_ context.Context, key string, data auth.TokenData) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = data
	return nil
}

func (m *Memory) Load(_ context.Context, key string) (*auth.TokenData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.tokens[key]
	if !ok || m.expired(data) {
		return nil, nil
	}
	return &data, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}

func (m *Memory) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.tokens))
	for k, data := range m.tokens {
		if !m.expired(data) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stopGC) })
	return nil
}
