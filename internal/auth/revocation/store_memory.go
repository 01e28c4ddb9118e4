package revocation

import (
	"context"
	"sync"
	"time"
)

// Memory is a single-process revocation list for tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{revoked: make(map[string]time.Time)}
}

func (m *Memory) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	m.mu.RLock()
	expiry, exists := m.revoked[jti]
	m.mu.RUnlock()
	if !exists {
		return false, nil
	}
	if time.Now().After(expiry) {
		m.mu.Lock()
		delete(m.revoked, jti)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}
