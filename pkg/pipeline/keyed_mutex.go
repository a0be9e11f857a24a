package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes pipeline mutations per document, so a delete cannot
// interleave with a concurrent ingest of the same document while unrelated
// documents proceed in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*docLock)}
}

func (k *keyedMutex) Lock(id uuid.UUID) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &docLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedMutex) Unlock(id uuid.UUID) {
	k.mu.Lock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
