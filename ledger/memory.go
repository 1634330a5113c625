package ledger

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MemoryConfig configures NewMemory.
type MemoryConfig struct {
	Now     func() time.Time
	MaxKeys int
}

// Memory is a process local ledger. It is only single-use within one
// process; multi-instance deployments should use Redis.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	used    map[string]time.Time
	maxKeys int
}

// NewMemory returns an empty in-memory ledger.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &Memory{
		now:     cfg.Now,
		used:    make(map[string]time.Time),
		maxKeys: cfg.MaxKeys,
	}
}

// Consume marks tokenID as used until the given time. It returns false when
// the id was already consumed or until has passed.
func (m *Memory) Consume(_ context.Context, tokenID string, until time.Time) (bool, error) {
	if err := validateTokenID(tokenID); err != nil {
		return false, err
	}

	now := m.now()
	if !now.Before(until) {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if expires, ok := m.used[tokenID]; ok {
		if now.Before(expires) {
			return false, nil
		}
		delete(m.used, tokenID)
	}

	if len(m.used) >= m.maxKeys {
		m.gc(now)
	}
	if len(m.used) >= m.maxKeys {
		return false, goerrors.New("reset ledger capacity exceeded", goerrors.CategoryRateLimit).
			WithMetadata(map[string]any{"max_keys": m.maxKeys})
	}

	m.used[tokenID] = until
	return true, nil
}

// Len returns the number of tracked ids, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.used)
}

func (m *Memory) gc(now time.Time) {
	for id, expires := range m.used {
		if !now.Before(expires) {
			delete(m.used, id)
		}
	}
}
