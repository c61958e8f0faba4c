package archive

import (
	"context"
	"io"
)

// StorageDriver defines how decision snapshots reach object storage.
type StorageDriver interface {
	// Save writes the content under key, replacing anything already there.
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the object back and its content type.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}
