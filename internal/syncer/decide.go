package syncer

import (
	"time"

	"github.com/tclip/ragsync/internal/objectstore"
)

// Decision is the outcome of a staleness check.
type Decision int

const (
	// Skip means the remote artifact is current.
	Skip Decision = iota
	// Upload means the remote artifact is absent or stale.
	Upload
)

func (d Decision) String() string {
	if d == Upload {
		return "upload"
	}
	return "skip"
}

// Decide compares a source document's mtime against the remote object's
// recorded mtime. Upload when the object is absent or when the source is
// newer by more than tolerance; the tolerance absorbs clock skew and
// filesystem timestamp granularity between the two stores. Pure function.
func Decide(localUnix int64, remote objectstore.RemoteState, tolerance time.Duration) Decision {
	if !remote.Exists {
		return Upload
	}
	if localUnix-remote.LastModified > int64(tolerance/time.Second) {
		return Upload
	}
	return Skip
}
