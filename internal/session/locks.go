package session

import "sync"

// keyedMutex provides one mutex per thread ID so concurrent runs on distinct
// threads never contend while two runs on the same thread serialize.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*threadLock)}
}

// Acquire blocks until the per-thread lock is held and returns the release
// function. Lock entries are reference counted and removed when unused so
// the map does not grow with thread churn.
func (k *keyedMutex) Acquire(threadID string) func() {
	k.mu.Lock()
	lock, ok := k.locks[threadID]
	if !ok {
		lock = &threadLock{}
		k.locks[threadID] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()
			k.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(k.locks, threadID)
			}
			k.mu.Unlock()
		})
	}
}
