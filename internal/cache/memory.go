package cache

import (
	"context"
	"sync"
)

// MemoryLog is a process-local MoveLog, used when no Redis is configured
// and in tests. It forgets everything on exit.
type MemoryLog struct {
	mu     sync.RWMutex
	data   map[string]struct{}
	prefix string
}

func NewMemoryLog(prefix string) *MemoryLog {
	return &MemoryLog{
		data:   make(map[string]struct{}),
		prefix: prefix,
	}
}

func (m *MemoryLog) Close() error {
	return nil
}

func (m *MemoryLog) IsPromoted(ctx context.Context, url string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.data[key(m.prefix, url)]
	return exists, nil
}

func (m *MemoryLog) MarkPromoted(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(m.prefix, url)] = struct{}{}
	return nil
}
