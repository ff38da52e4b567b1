package repository

import (
	"context"
	"sync"
)

// namespaced prefixes keys so several installations can share one backend.
func namespaced(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

// MemoryKVRepository keeps store entries in process memory.
type MemoryKVRepository struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKVRepository constructs an empty in-memory repository.
func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{data: make(map[string]string)}
}

// Get returns the value for key.
func (r *MemoryKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (r *MemoryKVRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
	return nil
}

// Remove deletes key.
func (r *MemoryKVRepository) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}
