// Package distlock serialises work on a key across processes using Redis
// leases.
package distlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/adaptive-core/internal/pkg/logger"
)

// ErrNotOwner is returned when a lease was lost before it could be extended.
var ErrNotOwner = errors.New("lock no longer owned")

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 25 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// KeyLocker hands out Redis leases per key. Every Lock call takes its own
// lease, so one KeyLocker may be shared by many goroutines.
type KeyLocker struct {
	client  redis.Cmdable
	prefix  string
	ttl     time.Duration
	backoff time.Duration
}

// NewKeyLocker creates a locker whose Redis keys are prefix+key. ttl bounds
// how long a crashed holder can keep a key; zero means 30s.
func NewKeyLocker(client redis.Cmdable, prefix string, ttl time.Duration) *KeyLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &KeyLocker{client: client, prefix: prefix, ttl: ttl, backoff: defaultBackoff}
}

// Lock polls until the lease on key is free or ctx is done. While held, the
// lease is extended every third of its TTL so a long critical section keeps
// it. The returned func stops renewal and releases the lease; release
// failures are logged since the TTL reclaims the key anyway.
func (k *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l := NewRedisLock(k.client, k.prefix+key, k.ttl)
	wait := k.backoff
	for {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > maxBackoff {
			wait = maxBackoff
		}
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go k.renew(l, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed
			// The caller's ctx may already be cancelled; release regardless.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Release(ctx); err != nil {
				logger.Warn("lock release failed", "key", l.key, "error", err)
			}
		})
	}, nil
}

func (k *KeyLocker) renew(l *RedisLock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(k.ttl / 3)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), k.ttl/3)
		err := l.Extend(ctx, k.ttl)
		cancel()
		if errors.Is(err, ErrNotOwner) {
			logger.Warn("lock lease lost", "key", l.key)
			return
		}
		if err != nil {
			logger.Warn("lock renewal failed", "key", l.key, "error", err)
		}
	}
}
