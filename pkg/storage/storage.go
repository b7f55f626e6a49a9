// Package storage reads model artifacts and stages uploaded recordings.
//
// Artifacts are addressed by a [Location]: either a local filesystem path
// or an s3://bucket/key URI. A [Resolver] opens either kind. Uploads are
// staged under a [Local] root with random names and removed once scored.
package storage

import (
	"context"
	"io"
)

// Reader is the read side of a store.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type Reader interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// FileStore is a Reader that can also create and remove files.
type FileStore interface {
	Reader

	// Write opens the named file for writing.
	// If the file already exists it is truncated.
	// Parent directories are created automatically.
	// The caller must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error
}
