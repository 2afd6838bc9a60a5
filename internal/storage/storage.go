// Package storage defines the Storage interface implemented by every animal
// photo backend.
//
// Backends register themselves with the factory from an init() function in
// their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// cmd/server blank-imports each backend so that its init() runs.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned, possibly wrapped, when no object exists at a path.
var ErrNotFound = errors.New("object not found")

// Storage stores animal photos
type Storage interface {
	// Upload stores the object read from reader under path
	Upload(ctx context.Context, path string, reader io.Reader, contentType string) (*UploadResult, error)

	// Download opens the object at path
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at path. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	// GetURL returns a URL clients can fetch the object from. Cloud backends
	// sign it for ttl; the local backend returns a /files URL.
	GetURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Exists reports whether an object is stored at path
	Exists(ctx context.Context, path string) (bool, error)
}

// Provisioner is implemented by backends that can create their bucket or
// container on startup.
type Provisioner interface {
	EnsureReady(ctx context.Context) error
}

// UploadResult describes a stored object
type UploadResult struct {
	Path string

	Size int64

	// Checksum is the hex SHA-256 of the object
	Checksum string

	ContentType string
}
