package locksvc

import (
	"context"
	"sync"

	"github.com/trezcool/schoolms/core"
)

// LocalLocker is a core.Locker for a single API instance: one mutex per key, held in memory.
// Used when Redis is not configured, and in tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch      chan struct{} // holds a token while the key is locked
	waiters int
}

var _ core.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) acquire(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	return kl
}

func (l *LocalLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}

// WithLock runs fn once no other fn holds the key. Gives up when ctx is done.
func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	kl := l.acquire(key)
	defer l.release(key, kl)

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-kl.ch }()

	return fn(ctx)
}
