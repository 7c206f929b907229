package engine

import "sync"

// keyedMutex provides one mutex per queue item id so distribution attempts
// for the same item serialize while different items proceed in parallel.
// Entries are reference counted and removed when the last holder releases,
// keeping the map bounded by the number of in-flight operations.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*itemLock)}
}

func (k *keyedMutex) Lock(id string) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &itemLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedMutex) Unlock(id string) {
	k.mu.Lock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
