package mempaper

import (
	"context"
	"sync"

	"github.com/kailas-cloud/paperdex/internal/db"
)

// KV is an in-process byte store for the embedding cache.
type KV struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewKV creates an empty store.
func NewKV() *KV {
	return &KV{m: make(map[string][]byte)}
}

// Get returns the value for key or db.ErrKeyNotFound.
func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.m[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value at key.
func (k *KV) Set(_ context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = append([]byte(nil), value...)
	return nil
}
