package locksvc

import (
	"context"
	"fmt"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/schoolms/core"
)

var errLockBusy = core.NewConflictError("another operation is in progress on this resource, retry later")

// RedisLocker is a core.Locker shared by all API instances, backed by Redis.
type RedisLocker struct {
	rs     *redsync.Redsync
	conf   core.RedisConfig
	logger core.Logger
}

var _ core.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.UniversalClient, conf *core.Config, logger core.Logger) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		conf:   conf.Redis,
		logger: logger,
	}
}

// WithLock runs fn while holding the Redis mutex named key.
// Fails with a *core.ConflictError when the mutex could not be acquired in time.
// Errors returned by fn are returned as is.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(l.conf.LockExpiry),
		redsync.WithTries(l.conf.LockTries),
		redsync.WithRetryDelay(l.conf.LockRetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "acquiring lock "+key)
		}
		var taken *redsync.ErrTaken
		if errors.Cause(err) == redsync.ErrFailed || errors.As(err, &taken) {
			return errLockBusy
		}
		return errors.Wrap(err, "acquiring lock "+key)
	}
	defer func() {
		// the lock may have expired already: fn took longer than LockExpiry
		if ok, err := mutex.UnlockContext(context.Background()); !ok || err != nil {
			l.logger.Warn(fmt.Sprintf("releasing lock %s: ok=%v", key, ok), err)
		}
	}()

	return fn(ctx)
}
