// Package storage addresses the object stores the pipeline reads inputs from
// and writes partition artifacts to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"telemetry-pipeline/internal/config"
)

// Storage errors.
var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrEmptyKey         = errors.New("object key is empty")
	ErrInvalidKey       = errors.New("object key escapes the store root")
	ErrInvalidContainer = errors.New("container escapes the local root")
)

// ObjectStore is a flat key/value blob store rooted at one container
type ObjectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Location renders a key as a fully qualified address for logs and results
	Location(key string) string
}

// Opener returns the store for a container (bucket name or directory)
type Opener func(container string) (ObjectStore, error)

// NewOpener builds the opener for the configured backend.
// S3 sessions are created once from explicit configuration.
func NewOpener(cfg config.StorageConfig) (Opener, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		root := cfg.LocalRoot
		return func(container string) (ObjectStore, error) {
			dir, err := joinRoot(root, container)
			if err != nil {
				return nil, err
			}
			return NewLocalStore(dir)
		}, nil
	case config.BackendS3:
		client, err := NewS3Client(cfg.S3)
		if err != nil {
			return nil, err
		}
		return func(container string) (ObjectStore, error) {
			return NewS3Store(client, container), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}
