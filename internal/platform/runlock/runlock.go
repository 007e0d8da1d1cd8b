// Package runlock keeps refinement runs single-writer across processes.
package runlock

import (
	"context"
	"errors"
)

var (
	// ErrHeld is returned by Acquire when another holder has the lock.
	ErrHeld = errors.New("run lock is held by another process")
	// ErrLost is returned by a Release whose lock expired or was taken over.
	ErrLost = errors.New("run lock was lost before release")
)

// Release gives the lock back. It is safe to call once.
type Release func(ctx context.Context) error

// Locker hands out the run lock.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// Noop never contends. Used when LOCK_BACKEND=none.
type Noop struct{}

func (Noop) Acquire(context.Context) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
