// Package store provides the key-value blob store the workspace persists
// into. Blobs are opaque JSON documents keyed by name; the store is an
// external collaborator and never interprets their content.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNoBlob indicates the key has no stored blob.
var ErrNoBlob = errors.New("store: blob not found")

// Store is the persistence port consumed by the workspace.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Store used for tests and store-less operation.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Get returns the blob stored under key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, ErrNoBlob
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Put stores blob under key, replacing any previous value.
func (m *Memory) Put(ctx context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(blob))
	copy(stored, blob)
	m.blobs[key] = stored
	return nil
}

// Delete removes the blob under key. Missing keys are not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
