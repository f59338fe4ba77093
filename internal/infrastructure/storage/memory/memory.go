// Package memory is a process-local ports.KeyValueStore. Sessions kept here do
// not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/resumeforge/tailor-client/internal/core/ports"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ ports.KeyValueStore = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		s.data[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
