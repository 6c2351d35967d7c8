// Package keylock provides mutual exclusion scoped to a string key.
// Callers hold a key across a read-check-write sequence that the store
// cannot express as one conditional statement.
package keylock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be taken before ctx ended.
var ErrNotAcquired = errors.New("keylock: lock not acquired")

// Locker acquires a lock for key. The returned function releases it and is
// safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
