package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "brokerflow/internal/errors"
)

// FSStore implements ObjectStore on a local directory tree, mapping
// "/"-delimited keys onto paths under a root.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at the given directory, creating
// it if necessary.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, apperrors.NewConfigError("storage root must not be empty", nil)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to create storage root %s", root), err)
	}
	return &FSStore{root: root}, nil
}

// GetText reads the object at key. A missing object is reported as a
// NOT_FOUND error, never as a storage failure.
func (s *FSStore) GetText(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NewNotFoundError(fmt.Sprintf("object %s not found", key), err)
		}
		return "", apperrors.NewStorageError(fmt.Sprintf("failed to read object %s", key), err)
	}
	return string(data), nil
}

// PutText writes content at key, creating parent folders as needed.
func (s *FSStore) PutText(ctx context.Context, key, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create folder for %s", key), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write object %s", key), err)
	}
	return nil
}

// ListKeys returns every object key under the given folder prefix,
// sorted. A missing folder yields an empty result.
func (s *FSStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.keyPath(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to list keys under %s", prefix), err)
	}

	sort.Strings(keys)
	return keys, nil
}

// ListPrefixes returns the names of immediate child folders under the
// given prefix, sorted. A missing folder yields an empty result.
func (s *FSStore) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.keyPath(prefix)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to list prefixes under %s", prefix), err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

// Exists reports whether an object is present at key.
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.NewStorageError(fmt.Sprintf("failed to stat object %s", key), err)
	}
	return !info.IsDir(), nil
}

// keyPath maps a "/"-delimited key onto a filesystem path, rejecting
// traversal outside the root.
func (s *FSStore) keyPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid object key %q", key), nil)
	}
	if cleaned == "." {
		return s.root, nil
	}
	return filepath.Join(s.root, cleaned), nil
}
