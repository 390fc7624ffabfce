package notify

import (
	"context"
	"sync"
)

// keyedMutex hands out one mutex per reminder id. Entries are dropped when
// the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint64]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(id uint64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uint64]*refLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

type heldKey struct{}

type held struct {
	k  *keyedMutex
	id uint64
}

// lockCtx is Lock, except that it does nothing when ctx was returned by hold
// for the same id. The outer hold owns the unlock.
func (k *keyedMutex) lockCtx(ctx context.Context, id uint64) func() {
	if h, ok := ctx.Value(heldKey{}).(held); ok && h.k == k && h.id == id {
		return func() {}
	}
	return k.Lock(id)
}

// hold locks id and returns a context that marks the lock as taken.
func (k *keyedMutex) hold(ctx context.Context, id uint64) (context.Context, func()) {
	unlock := k.lockCtx(ctx, id)
	return context.WithValue(ctx, heldKey{}, held{k: k, id: id}), unlock
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
