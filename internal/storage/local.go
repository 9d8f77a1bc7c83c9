package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as files below a root directory
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// joinRoot resolves a container below root. Absolute paths and ".." segments
// are rejected so a caller cannot reach outside the configured root.
func joinRoot(root, container string) (string, error) {
	if container == "" {
		return root, nil
	}
	if filepath.IsAbs(container) || strings.HasPrefix(container, "/") || strings.HasPrefix(container, `\`) {
		return "", fmt.Errorf("%w: %s", ErrInvalidContainer, container)
	}
	for _, part := range strings.FieldsFunc(container, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", fmt.Errorf("%w: %s", ErrInvalidContainer, container)
		}
	}
	return filepath.Join(root, filepath.FromSlash(container)), nil
}

func (s *LocalStore) path(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, clean), nil
}

// Get opens the file behind key
func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Put writes data to key, replacing any existing file
func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Location returns the file path of key
func (s *LocalStore) Location(key string) string {
	p, err := s.path(key)
	if err != nil {
		return filepath.Join(s.root, key)
	}
	return p
}

// Root returns the directory this store writes below
func (s *LocalStore) Root() string {
	return s.root
}
