// Package blob moves run directories and postprocessing artifacts to and
// from object storage. Backends: local filesystem (default, dev), S3/MinIO,
// and in-memory (tests). Keys map directly to the run's relative file paths,
// and puts overwrite so that a re-pushed run replaces its previous upload.
package blob

import (
	"context"
	"io"
	"time"
)

// Driver identifies a concrete backend implementation.
type Driver string

const (
	// DriverFilesystem is the local filesystem backend.
	DriverFilesystem Driver = "fs"
	// DriverS3 is the S3 / MinIO compatible backend.
	DriverS3 Driver = "s3"
	// DriverMemory is the in-memory backend used in tests.
	DriverMemory Driver = "memory"
)

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the minimal object-storage surface the transfer helpers need.
type Store interface {
	// Put stores the object under key, overwriting any previous object.
	Put(ctx context.Context, key string, r io.Reader) (Info, error)
	// Get opens the object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns objects under the key prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}
