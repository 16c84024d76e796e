package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps documents in process memory with expiry
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a memory cache; expired items are purged every cleanupInterval
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) (*Document, bool) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	doc, ok := v.(*Document)
	return doc, ok
}

func (c *MemoryCache) Set(key string, doc *Document, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, doc, ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.store.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.store.Flush()
	return nil
}

// Len returns the number of cached documents, including not-yet-purged expired ones
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}
