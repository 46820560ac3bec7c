// Package cache holds the in-process report cache.
package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/iho/envelopeledger/internal/domain"
)

type entry struct {
	value   []domain.ReportTransaction
	expires time.Time
}

// Memory implements usecase.ReportCache in process memory. Expired entries
// are dropped on read and by Sweep.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// Get returns a copy of the cached report.
func (m *Memory) Get(_ context.Context, key string) ([]domain.ReportTransaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

// Set stores a copy of value for ttl.
func (m *Memory) Set(_ context.Context, key string, value []domain.ReportTransaction, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: slices.Clone(value), expires: m.now().Add(ttl)}
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			dropped++
		}
	}
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
