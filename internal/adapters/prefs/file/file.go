// Package file stores string preferences in a JSON object on disk.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/ports"
)

// Store is a flat key/value preference file. The file is read on first use
// and rewritten atomically on every SetString.
type Store struct {
	values map[string]string
	path   string
	mu     sync.Mutex
	loaded bool
}

var _ ports.PrefStore = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// GetString returns the value stored under key or domain.ErrPrefNotFound.
func (s *Store) GetString(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return "", err
	}
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrPrefNotFound, key)
	}
	return v, nil
}

// SetString stores value under key and persists the whole file.
func (s *Store) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}

	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value
	if err := writeJSONAtomic(s.path, next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	values := map[string]string{}
	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read prefs: %w", err)
	case len(b) > 0:
		if err := json.Unmarshal(b, &values); err != nil {
			return fmt.Errorf("decode prefs: %w", err)
		}
	}
	s.values, s.loaded = values, true
	return nil
}

func writeJSONAtomic(path string, values map[string]string) (retErr error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	closed := false
	defer func() {
		if !closed {
			if cerr := tmp.Close(); cerr != nil && retErr == nil {
				retErr = fmt.Errorf("close tmp: %w", cerr)
			}
		}
		if cleanup {
			if err := os.Remove(tmpName); err != nil && retErr == nil {
				retErr = fmt.Errorf("remove tmp: %w", err)
			}
		}
	}()

	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tmp: %w", err)
	}
	closed = true
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	cleanup = false
	return nil
}
