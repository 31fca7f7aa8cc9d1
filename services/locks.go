package services

import "sync"

// AggregateLocks serializes mutating operations per aggregate id. Two
// concurrent point submissions on the same match, or two stage
// advancement checks on the same tournament, take the same lock.
// Lock order is always match before tournament, never nested matches.
type AggregateLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAggregateLocks() *AggregateLocks {
	return &AggregateLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for the key and returns its release func.
func (k *AggregateLocks) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	var once sync.Once
	// Single-shot so callers can release early and still defer.
	return func() { once.Do(l.Unlock) }
}

func matchKey(id string) string      { return "match:" + id }
func tournamentKey(id string) string { return "tournament:" + id }
