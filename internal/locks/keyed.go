// Package locks provides a keyed mutex registry used to serialize
// read-modify-write order execution per user. Two concurrent orders for the
// same user must not both read the same account snapshot; orders for
// different users proceed fully in parallel.
package locks

import "sync"

// Keyed hands out one mutex per key. Mutexes are created on first use and
// retained for the life of the process; the key space (user ids) is small.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyed creates an empty registry.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed.
func (k *Keyed) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
func (k *Keyed) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *Keyed) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
