package sessioncache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockStripes = 64

// keyLocks serializes writers of the same key without one global mutex.
type keyLocks struct {
	mu [lockStripes]sync.Mutex
}

func (l *keyLocks) lock(key string) func() {
	m := &l.mu[xxhash.Sum64String(key)%lockStripes]
	m.Lock()
	return m.Unlock
}
