package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "go-gin-supper-club/pkg/app_errors"
)

// MemoryLocker serialises holders inside one process with a one-slot
// channel per key.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[string]chan struct{}),
	}
}

func (l *MemoryLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration) (Lease, error) {
	s := l.slot(key)
	select {
	case s <- struct{}{}:
		return &memoryLease{slot: s}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrLockTimeout, key, ctx.Err())
	}
}

type memoryLease struct {
	once sync.Once
	slot chan struct{}
}

func (m *memoryLease) Release(context.Context) error {
	m.once.Do(func() { <-m.slot })
	return nil
}
