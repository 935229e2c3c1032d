// Package locker provides per-pet mutual exclusion. Locks on different keys never contend.
package locker

import (
	"context"
	"sync"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Keyed hands out one binary semaphore per key; entries are dropped when unused.
type Keyed struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

// New constructs an empty Keyed locker.
func New() *Keyed {
	return &Keyed{locks: make(map[uuid.UUID]*entry)}
}

// Lock blocks until the key is free or ctx is done. The returned func releases the lock.
func (k *Keyed) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	e := k.acquire(id)
	if err := e.sem.Acquire(ctx, 1); err != nil {
		k.release(id, e)
		return nil, err
	}
	return k.unlockFunc(id, e), nil
}

// TryLock takes the lock only if it is free right now.
func (k *Keyed) TryLock(id uuid.UUID) (func(), bool) {
	e := k.acquire(id)
	if !e.sem.TryAcquire(1) {
		k.release(id, e)
		return nil, false
	}
	return k.unlockFunc(id, e), true
}

// Len reports how many keys are currently held or awaited.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func (k *Keyed) acquire(id uuid.UUID) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[id]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.locks[id] = e
	}
	e.refs++
	return e
}

func (k *Keyed) release(id uuid.UUID, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, id)
	}
}

func (k *Keyed) unlockFunc(id uuid.UUID, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			k.release(id, e)
		})
	}
}
