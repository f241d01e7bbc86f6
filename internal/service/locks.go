package service

import "sync"

// lockArena serializes vector-store upserts per (repository, file_path).
// The store's delete-old-insert-new upsert is not internally locked; two
// concurrent upserts for the same file would interleave unsafely without
// this gate. Locks are created on first use and kept for the process
// lifetime — the key space is bounded by the indexed file set.
type lockArena struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the named entry and returns its release function.
func (a *lockArena) acquire(repository, filePath string) func() {
	key := repository + "\x00" + filePath

	a.mu.Lock()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	a.mu.Unlock()

	l.Lock()
	return l.Unlock
}
