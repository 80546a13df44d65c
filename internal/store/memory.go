package store

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
)

// Memory keeps encoded values in process. It backs the service when no
// database is configured and is used throughout the tests.
type Memory struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[Key][]byte{}}
}

func (m *Memory) Get(_ context.Context, key Key, dest any) error {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *Memory) Set(_ context.Context, key Key, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}
