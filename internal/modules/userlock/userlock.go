// README: Per-user mutual exclusion so one user's turns never interleave.
package userlock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tripdesk/internal/types"
)

// ErrNotAcquired wraps the context error when a lock wait is abandoned.
var ErrNotAcquired = errors.New("userlock: not acquired")

// Locker serialises work per user. Lock blocks until the user's lock is held
// or ctx is done; the returned func releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, userID types.ID) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker. Entries are reference counted and
// dropped once no goroutine holds or waits on them, so the map stays bounded
// by the number of users with a turn in flight.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[types.ID]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[types.ID]*entry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, userID types.ID) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[userID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.locks[userID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(userID, e)
		return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.release(userID, e)
		})
	}, nil
}

func (k *KeyedMutex) release(userID types.ID, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, userID)
	}
}

// Len reports how many users currently have an entry.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
