package memory

import (
	"context"
	"sync"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

// Store keeps credentials in process memory. It is lost on exit.
type Store struct {
	mu sync.RWMutex
	m  map[string]string
}

func New() *Store { return &Store{m: make(map[string]string)} }

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return "", auth.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}
