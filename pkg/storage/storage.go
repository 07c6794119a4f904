// Package storage keeps rendered report documents on disk, one directory per user.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the user directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the file operations the report generator and file handler need.
type Storage interface {
	// Save stores r under fileID. Saving the same id twice replaces the content.
	Save(ctx context.Context, userID, fileID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns the content and metadata of a file owned by userID.
	Open(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a file owned by userID.
	Delete(ctx context.Context, userID, fileID uuid.UUID) error

	// GetInfo returns metadata without opening the file.
	GetInfo(ctx context.Context, userID, fileID uuid.UUID) (*FileInfo, error)
}

// Backend names a Storage implementation
type Backend string

const (
	BackendLocal Backend = "local"
	BackendGCS   Backend = "gcs"
)

// Config holds storage configuration
type Config struct {
	Backend   Backend
	LocalPath string
	GCSBucket string
}

// New creates the configured Storage. An empty backend means local disk.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalStorage(cfg.LocalPath)
	case BackendGCS:
		return NewGCSStorage(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
