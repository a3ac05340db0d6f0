// Package objectstore abstracts the remote object store the sync engine
// writes to. The engine only needs three stateless operations: probe an
// object's existence and mtime, overwrite an object at a key, and list
// keys under a prefix. The interface exists so the orchestrator can be
// exercised against an in-memory double.
package objectstore

import (
	"context"
	"errors"
	"fmt"
)

// RemoteState is a point-in-time snapshot of one remote object, used only
// for the staleness decision of the current run.
type RemoteState struct {
	Key          string
	Exists       bool
	LastModified int64 // Unix seconds; zero when the object is absent
}

// ObjectInfo describes one stored object in a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified int64
}

// Store is the object-store contract consumed by the sync engine.
// Implementations must be safe for concurrent use; calls are stateless
// request/response operations sharing one underlying session.
type Store interface {
	// Probe reports existence and last-modified time for a key. An
	// absent object is not an error. Transport and auth failures return
	// a *StoreError.
	Probe(ctx context.Context, key string) (RemoteState, error)

	// Put overwrites the object at key with body. Uploading identical
	// content to the same key is a harmless overwrite.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// List returns every object under the given key prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// URL renders the store-native URL for a key (for record annotation
	// and operator output).
	URL(key string) string
}

// Error kinds carried by StoreError. Transient errors are worth a bounded
// retry; authorization errors are recorded immediately.
const (
	KindTransient     = "transient"
	KindAuthorization = "authorization"
)

// StoreError classifies a failed store operation.
type StoreError struct {
	Op   string // "probe", "put", "list"
	Key  string
	Kind string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("object store %s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient store error.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindTransient
}
