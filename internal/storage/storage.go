// Package storage provides the temporary file workspace used while a
// transcription request is in flight. It defines the Storage port and a
// local-disk implementation. Nothing here persists beyond one request;
// durable storage is the caller's concern.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for the temporary file workspace.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// TempPath reserves a path for a temporary file without creating it.
	// The name parameter is used as a hint for the filename.
	TempPath(name string) string

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// FreeBytes reports the free disk space available to the workspace.
	FreeBytes() (uint64, error)
}
