package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

const s3Scheme = "s3://"

// ErrNoS3Client is returned when an s3:// location is opened by a
// Resolver that has no S3 client.
var ErrNoS3Client = errors.New("storage: s3 location without s3 client")

// Location addresses a single artifact. Exactly one of Path or Bucket/Key
// is set.
type Location struct {
	Path   string // absolute local path
	Bucket string
	Key    string
}

// ParseLocation parses s3://bucket/key URIs and local paths. Relative
// local paths are made absolute against the working directory.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, errors.New("storage: empty location")
	}
	if rest, ok := strings.CutPrefix(s, s3Scheme); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, fmt.Errorf("storage: invalid s3 location %q", s)
		}
		return Location{Bucket: bucket, Key: key}, nil
	}
	abs, err := filepath.Abs(s)
	if err != nil {
		return Location{}, fmt.Errorf("storage: %w", err)
	}
	return Location{Path: abs}, nil
}

// IsS3 reports whether the location names an S3 object.
func (l Location) IsS3() bool {
	return l.Bucket != ""
}

// Ext returns the lower-cased extension of the file or key name.
func (l Location) Ext() string {
	if l.IsS3() {
		return strings.ToLower(path.Ext(l.Key))
	}
	return strings.ToLower(filepath.Ext(l.Path))
}

func (l Location) String() string {
	if l.IsS3() {
		return s3Scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Resolver opens locations on local disk or in S3.
type Resolver struct {
	client S3Client
}

// NewResolver returns a Resolver. A nil client limits it to local paths.
func NewResolver(client S3Client) *Resolver {
	return &Resolver{client: client}
}

// Open opens the location for reading. The caller must close the result.
func (r *Resolver) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	store, name, err := r.reader(loc)
	if err != nil {
		return nil, err
	}
	return store.Read(ctx, name)
}

// Exists reports whether the location exists.
func (r *Resolver) Exists(ctx context.Context, loc Location) (bool, error) {
	store, name, err := r.reader(loc)
	if err != nil {
		return false, err
	}
	return store.Exists(ctx, name)
}

func (r *Resolver) reader(loc Location) (Reader, string, error) {
	if loc.IsS3() {
		if r.client == nil {
			return nil, "", fmt.Errorf("%w: %s", ErrNoS3Client, loc)
		}
		return NewS3(r.client, loc.Bucket, ""), loc.Key, nil
	}
	// Read through a Local rooted at the parent directory without creating it.
	dir, name := filepath.Split(loc.Path)
	return &Local{root: filepath.Clean(dir)}, name, nil
}
