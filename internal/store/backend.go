package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrNotFound = errors.New("snapshot not found")

// Backend is the byte-level storage a durability adapter writes through.
// Get returns ErrNotFound for unknown keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// JSONAdapter persists a store's snapshot as a JSON document under one key.
type JSONAdapter[S any] struct {
	backend Backend
	key     string
}

func NewJSONAdapter[S any](backend Backend, key string) *JSONAdapter[S] {
	return &JSONAdapter[S]{backend: backend, key: key}
}

func (a *JSONAdapter[S]) Key() string { return a.key }

func (a *JSONAdapter[S]) Load(ctx context.Context) (S, error) {
	var snapshot S
	data, err := a.backend.Get(ctx, a.key)
	if err != nil {
		return snapshot, err
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		var zero S
		return zero, fmt.Errorf("decode %s: %w", a.key, err)
	}
	return snapshot, nil
}

func (a *JSONAdapter[S]) Save(ctx context.Context, snapshot S) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode %s: %w", a.key, err)
	}
	return a.backend.Put(ctx, a.key, data)
}

// MemoryBackend keeps snapshots in process memory. Useful for tests and
// single-process deployments that accept losing state on restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
