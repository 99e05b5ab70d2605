package repository

import (
	"context"
	"io"
)

// ArtifactStore persists input uploads and exposes output artifacts.
// Paths returned by the store are opaque to callers.
type ArtifactStore interface {
	// SaveInput writes the upload to disk and returns its path and size.
	SaveInput(ctx context.Context, jobID, filename string, r io.Reader) (path string, size int64, err error)
	// OutputPath computes where the converted artifact for a job should go.
	OutputPath(jobID, filename string) string
	// Open opens a stored artifact for reading.
	Open(path string) (io.ReadCloser, error)
	// Size returns the artifact size, or ok=false when it does not exist.
	Size(path string) (int64, bool)
	// RemoveAll deletes every artifact belonging to a job. Missing files
	// are not an error.
	RemoveAll(jobID string) error
}
