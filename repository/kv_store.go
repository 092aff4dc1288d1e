package repository

import (
	"context"
	"errors"
	"sync"
)

// ErrKeyNotFound is returned by KVStore.Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KVStore defines the string-keyed persistence the account store relies on.
// Values are opaque strings (JSON in practice).
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// memoryKVStore implements KVStore in process memory.
type memoryKVStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKVStore creates an empty in-memory KVStore.
func NewMemoryKVStore() KVStore {
	return &memoryKVStore{data: make(map[string]string)}
}

func (s *memoryKVStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (s *memoryKVStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memoryKVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memoryKVStore) Close() error { return nil }
