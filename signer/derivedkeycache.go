package signer

import (
	"sync"
	"time"
)

// derivedKeyCache holds derived SigV4 keys. Signing calls run concurrently,
// so every access goes through mu.
// Reference: AWS SDK v4 signer internal/v4/cache.go derivedKeyCache
type derivedKeyCache struct {
	mu     sync.RWMutex
	values map[string]derivedKey
}

func newDerivedKeyCache() *derivedKeyCache {
	return &derivedKeyCache{
		values: make(map[string]derivedKey),
	}
}

// get returns the cached key when it was derived from the same credential
// on the same day.
func (c *derivedKeyCache) get(scope string, cred credentialID, t time.Time) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.values[scope]
	if !ok || entry.credential != cred || !isSameDay(t, entry.date) {
		return nil, false
	}
	return entry.key, true
}

// set stores a derived key, replacing any entry for the scope.
func (c *derivedKeyCache) set(scope string, cred credentialID, t time.Time, k []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[scope] = derivedKey{
		credential: cred,
		date:       t,
		key:        k,
	}
}

// len reports the number of cached scopes.
func (c *derivedKeyCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
