package timecard

import "sync"

// keyedLocker hands out one mutex per timecard id. Entries are dropped
// once no goroutine holds or waits for them.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[ID]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[ID]*keyedLock)}
}

// Lock blocks until the lock for id is held and returns its release func.
func (k *keyedLocker) Lock(id ID) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
