// Package stagecache implements a chunkserver's Stage Cache: a
// bounded LRU keyed by content hash, holding chunk bodies that have
// been pushed by a client but not yet committed by the master.
package stagecache

import (
	"crypto/sha256"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"chunkvault/gfs"
)

// Cache is a fixed-capacity, content-addressed staging area. It is
// safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	inner *lru.Cache[gfs.ChunkHash, []byte]
}

// New builds a Cache holding at most capacity bodies before evicting
// the least-recently-used entry.
func New(capacity int) *Cache {
	inner, err := lru.New[gfs.ChunkHash, []byte](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0, which is a
		// programmer error in this module's callers.
		panic(err)
	}
	return &Cache{inner: inner}
}

// Put hashes body with SHA-256 and stages it under that hash,
// refreshing its recency if it was already present. Re-pushing the
// same body is idempotent and cheap (spec P7).
func (c *Cache) Put(body []byte) gfs.ChunkHash {
	hash := sha256.Sum256(body)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(hash, body)
	return hash
}

// Take returns and removes the body staged under hash. A second Take
// (or a Take after LRU eviction) returns chunk-not-found (spec P8).
func (c *Cache) Take(hash gfs.ChunkHash) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body, ok := c.inner.Get(hash)
	if !ok {
		return nil, gfs.NewError(gfs.ChunkNotFound, "no staged chunk for hash %x", hash)
	}
	c.inner.Remove(hash)
	return body, nil
}

// Len reports how many bodies are currently staged, for tests and
// diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}
