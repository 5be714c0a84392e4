package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "brokerflow/internal/errors"
)

// MemStore is an in-memory ObjectStore used by tests and small runs.
// It counts operations per kind so tests can assert on store traffic.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]string
	ops     map[string]int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]string),
		ops:     make(map[string]int),
	}
}

func (s *MemStore) GetText(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops["get"]++

	content, ok := s.objects[key]
	if !ok {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("object %s not found", key), nil)
	}
	return content, nil
}

func (s *MemStore) PutText(ctx context.Context, key, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops["put"]++
	s.objects[key] = content
	return nil
}

func (s *MemStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops["list"]++

	norm := strings.TrimSuffix(prefix, "/")
	var keys []string
	for key := range s.objects {
		if norm == "" || strings.HasPrefix(key, norm+"/") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops["list_prefixes"]++

	norm := strings.TrimSuffix(prefix, "/")
	seen := make(map[string]bool)
	for key := range s.objects {
		rest := key
		if norm != "" {
			if !strings.HasPrefix(key, norm+"/") {
				continue
			}
			rest = strings.TrimPrefix(key, norm+"/")
		}
		if idx := strings.Index(rest, "/"); idx > 0 {
			seen[rest[:idx]] = true
		}
	}

	var names []string
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops["exists"]++

	_, ok := s.objects[key]
	return ok, nil
}

// OpCount returns how many operations of the given kind ("get", "put",
// "list", "list_prefixes", "exists") have been issued.
func (s *MemStore) OpCount(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops[kind]
}

// Delete removes an object; missing keys are ignored.
func (s *MemStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}
