package store

import (
	"context"
	"slices"
	"sync"

	"idcard/pkg/platform/sentinel"
)

// InMemoryStore is a process-local KV for tests and single-instance runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]map[string][]byte
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{scopes: make(map[string]map[string][]byte)}
}

func (s *InMemoryStore) Get(_ context.Context, scope, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scopes[scope][key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *InMemoryStore) Put(_ context.Context, scope, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.scopes[scope]
	if !ok {
		m = make(map[string][]byte)
		s.scopes[scope] = m
	}
	m[key] = slices.Clone(value)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes[scope], key)
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope)
	return nil
}
