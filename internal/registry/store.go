// Package registry persists the slot registry as a single JSON document
// at a fixed per-user path. The store is injected into every command; it
// is the only shared mutable resource across invocations.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/slot/internal/models"
)

// Store reads and writes the registry file.
type Store struct {
	path string
}

// NewStore creates a store for the given registry file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewDefaultStore creates a store at ~/.config/slots/registry.json.
func NewDefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewStore(filepath.Join(home, ".config", "slots", "registry.json")), nil
}

// Path returns the registry file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the registry. A missing file yields an empty registry; a
// corrupt file is an error rather than silent data loss.
func (s *Store) Load() (*models.Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewRegistry(), nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var reg models.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", s.path, err)
	}
	return &reg, nil
}

// Save writes the registry atomically: the document is written to a temp
// file in the same directory and renamed over the target, so an
// interrupted save never leaves a partial file behind.
func (s *Store) Save(reg *models.Registry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp registry: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp registry: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Update loads the registry, applies fn, and saves the result.
func (s *Store) Update(fn func(*models.Registry) error) error {
	reg, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	return s.Save(reg)
}
