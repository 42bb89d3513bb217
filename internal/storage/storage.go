// Package storage defines the object store used for uploaded images.
//
// Backends register themselves from init() in their own package and are
// selected by storage.backend; cmd/api blank-imports each backend.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/yourusername/marketplace-api/internal/config"
)

// Storage stores uploaded objects and returns their public URL.
type Storage interface {
	// Upload stores size bytes from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)
}

// UploadResult describes a stored object.
type UploadResult struct {
	Key      string
	Size     int64
	Checksum string
	URL      string
}

// FactoryFunc builds a backend from configuration.
type FactoryFunc func(*config.Config) (Storage, error)

var factories = make(map[string]FactoryFunc)

// Register registers a storage backend factory
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// New creates the backend named by cfg.Storage.Backend.
func New(cfg *config.Config) (Storage, error) {
	factory, ok := factories[cfg.Storage.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", cfg.Storage.Backend)
	}
	return factory(cfg)
}
