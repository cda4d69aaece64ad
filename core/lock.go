package core

import "context"

// Locker serializes work on a shared resource identified by key.
type Locker interface {
	// WithLock runs fn while holding the lock on key. The lock is released when fn returns.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
