// Package keylock provides an arena of per-key mutexes. Holders of different
// keys never contend; entries are dropped once no goroutine holds or waits on
// them, so the arena does not grow with the number of keys ever seen.
package keylock

import (
	"context"
	"sync"
)

// Arena hands out one mutex per key.
type Arena struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// New creates an empty arena.
func New() *Arena {
	return &Arena{locks: make(map[string]*entry)}
}

// Lock blocks until key is free or ctx is done. The returned func releases the
// key and must be called exactly once.
func (a *Arena) Lock(ctx context.Context, key string) (func(), error) {
	a.mu.Lock()
	e, ok := a.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		a.locks[key] = e
	}
	e.refs++
	a.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		a.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			a.release(key, e)
		})
	}, nil
}

func (a *Arena) release(key string, e *entry) {
	a.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(a.locks, key)
	}
	a.mu.Unlock()
}

// Len returns the number of keys currently held or waited on.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}
