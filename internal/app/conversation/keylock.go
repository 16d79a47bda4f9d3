package conversation

import (
	"sync"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

// keyLock is a mutex per user id. Entries are dropped when nobody holds or
// waits for them.
type keyLock struct {
	mu    sync.Mutex
	locks map[domain.UserID]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[domain.UserID]*keyLockEntry)}
}

// Lock blocks until id is free and returns the matching unlock.
func (k *keyLock) Lock(id domain.UserID) func() {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &keyLockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
