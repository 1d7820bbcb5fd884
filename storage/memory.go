package storage

import (
	"context"
	"sync"
)

// Memory keeps every namespace in process memory. State is lost on restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]string{}}
}

func (m *Memory) Namespace(name string) Store {
	return &memoryStore{m: m, ns: name}
}

func (m *Memory) Close() error {
	return nil
}

type memoryStore struct {
	m  *Memory
	ns string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	v, ok := s.m.data[s.ns][key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ns, ok := s.m.data[s.ns]
	if !ok {
		ns = map[string]string{}
		s.m.data[s.ns] = ns
	}
	ns[key] = value
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.data[s.ns], key)
	return nil
}
