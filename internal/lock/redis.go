package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotAcquired is returned when the lock stays taken after every retry.
var ErrNotAcquired = errors.New("lock not acquired")

// RedisOptions tunes the distributed lock.
type RedisOptions struct {
	// Prefix is prepended to every key.
	Prefix     string
	// Expiry bounds how long a crashed holder keeps the key. A live holder
	// extends it every half expiry.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// DefaultRedisOptions returns the settings used when none are configured.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:     "ledger:lock:",
		Expiry:     30 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Redis is a Locker backed by redsync, shared by every process talking to the
// same Redis.
type Redis struct {
	rs   *redsync.Redsync
	opts RedisOptions
	log  zerolog.Logger
}

// NewRedis builds a distributed locker on top of client.
func NewRedis(client redis.UniversalClient, opts RedisOptions, log zerolog.Logger) *Redis {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultRedisOptions().Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = DefaultRedisOptions().Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRedisOptions().RetryDelay
	}
	return &Redis{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
		log:  log,
	}
}

// WithLock implements Locker.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := r.rs.NewMutex(r.opts.Prefix+key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("WithLock: acquire %s: %w", key, ctxErr)
		}
		return fmt.Errorf("WithLock: %s: %w (%v)", key, ErrNotAcquired, err)
	}

	stop := r.keepAlive(ctx, key, mutex)
	defer func() {
		stop()
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil || !ok {
			r.log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
		}
	}()

	return fn(ctx)
}

// keepAlive extends mutex every half expiry until the returned func is
// called. The returned func waits for the extender to exit.
func (r *Redis) keepAlive(ctx context.Context, key string, mutex *redsync.Mutex) func() {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.opts.Expiry / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ok, err := mutex.ExtendContext(ctx); err != nil || !ok {
					if ctx.Err() != nil {
						return
					}
					r.log.Warn().Err(err).Str("key", key).Msg("Failed to extend lock")
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

var _ Locker = (*Redis)(nil)
