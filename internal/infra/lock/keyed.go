// Package lock provides per-key serialization for the engine: operations on
// different learner ids run concurrently, but a single learner's operations
// are serialized to preserve the monotonicity of attempts and the
// correctness of running accuracy. Structurally this plays the same role a
// semaphore plays for concurrency control, just keyed instead of global.
package lock

import "sync"

// entry is one key's refcounted mutex: refcount tracks how many goroutines
// currently hold or are waiting on it, so Unlock can safely garbage-collect
// mutexes nobody references anymore.
type entry struct {
	mu  sync.Mutex
	refs int
}

// KeyedMutex hands out a dedicated mutex per key, evicting it once nothing
// holds or waits on it. Zero value is ready to use.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedMutex returns a ready-to-use KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock blocks until key's mutex is acquired. Pairs with Unlock.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*entry)
	}
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases key's mutex, evicting the backing entry if no other
// goroutine holds or is waiting on it.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// WithLock runs fn while holding key's mutex.
func (k *KeyedMutex) WithLock(key string, fn func()) {
	k.Lock(key)
	defer k.Unlock(key)
	fn()
}
