package poolfactory

import "sync"

// pairLocker hands out one mutex per canonical pair. Entries are reference counted and dropped
// once no goroutine holds or waits on them.
type pairLocker struct {
	mu    sync.Mutex
	locks map[TokenPair]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocker() *pairLocker {
	return &pairLocker{locks: make(map[TokenPair]*pairLock)}
}

// lock blocks until the caller holds the pair's mutex and returns the matching unlock func.
func (l *pairLocker) lock(pair TokenPair) func() {
	l.mu.Lock()
	pl, ok := l.locks[pair]
	if !ok {
		pl = &pairLock{}
		l.locks[pair] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()

	return func() {
		pl.mu.Unlock()

		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, pair)
		}
		l.mu.Unlock()
	}
}

// size returns the number of pairs currently tracked.
func (l *pairLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
