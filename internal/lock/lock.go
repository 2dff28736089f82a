// Package lock provides the keyed mutual exclusion that serialises
// waitlist promotion per event, across goroutines or across processes.
package lock

import (
	"context"
	"time"
)

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive leases per key. Acquire blocks until the lease is
// granted or ctx is done, in which case it returns ErrLockTimeout. ttl bounds
// how long an abandoned lease can block other holders.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}
