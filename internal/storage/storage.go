// Package storage contains the blob storage abstraction the document
// subsystem writes file bytes through, plus the layout rules that turn an
// entity and a user-supplied filename into a storage key.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a key has no object behind it.
var ErrNotFound = errors.New("storage: object not found")

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Storage is the blob backend interface. Keys are slash-separated paths
// relative to the storage root. Implementations must be safe for concurrent
// use and must never expose partially written objects.
type Storage interface {
	// Put stores the object under key using streaming I/O.
	Put(ctx context.Context, key string, r io.Reader, size int64) (ObjectInfo, error)
	// Get retrieves the object's content as a streaming reader with its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns object info without reading content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes the object. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, key string) error
	// Walk visits every stored object. Used by the sweeper and usage stats;
	// never called on a request path.
	Walk(ctx context.Context, fn func(ObjectInfo) error) error
}

// TempSweeper is implemented by backends that stage writes in a scratch area
// that can accumulate partial uploads.
type TempSweeper interface {
	// SweepTemp removes staging files older than maxAge and reports how many.
	SweepTemp(ctx context.Context, maxAge time.Duration) (int, error)
}
