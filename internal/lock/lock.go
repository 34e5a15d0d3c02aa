// Package lock provides run tokens that keep one batch per trade date in flight.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned when the token is already held.
var ErrLocked = errors.New("lock held")

// Locker acquires a named token for at most ttl.
type Locker interface {
	// Acquire returns a release func, or ErrLocked if the token is taken.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}
