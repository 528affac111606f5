package services

import "sync"

// userLocks serializes event handling per user. The registry's
// check-then-act sequence (lookup absent -> resolve destination ->
// register) suspends at transport I/O, so two messages from the same user
// arriving close together must queue behind one lock or they could both
// observe "no ticket" and create two.
//
// Entries are refcounted and removed when the last holder releases, so the
// map does not grow with the lifetime set of users ever seen.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Acquire blocks until the caller holds the user's lock.
func (l *userLocks) Acquire(userID string) {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Release unlocks the user's lock and drops the entry when no other
// handler is waiting on it.
func (l *userLocks) Release(userID string) {
	l.mu.Lock()
	entry := l.locks[userID]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
