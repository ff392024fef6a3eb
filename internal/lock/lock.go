// Package lock provides an opt-in advisory file lock for cmd/mindctl's
// write-path commands. The core ThoughtDB/EvidenceLog writer types never
// call this package directly: the library itself makes no inter-process
// locking guarantee, matching the spec's "library does not provide
// inter-process locking" contract. Grounded on the teacher's sync-lock
// pattern (cmd/bd/sync.go), generalized from a single TryLock to a short
// retry budget so the CLI times out instead of failing on first contention.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// WithLock acquires an exclusive advisory lock on path+".lock", runs fn, and
// releases the lock. It retries acquisition until timeout elapses, matching
// the teacher's flock.New/TryLock idiom but tolerating brief contention
// instead of failing immediately.
func WithLock(path string, timeout time.Duration, fn func() error) error {
	lockPath := path + ".lock"
	fl := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring lock %s after %s", lockPath, timeout)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}
