package cache

import (
	"errors"
	"time"
)

// LayeredCache reads memory first, then disk, promoting disk hits into memory
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache combines a memory cache and a disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, memoryTTL*2),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) (*Document, bool) {
	if doc, found := c.memory.Get(key); found {
		return doc, true
	}
	if doc, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, doc, 0)
		return doc, true
	}
	return nil, false
}

func (c *LayeredCache) Set(key string, doc *Document, ttl time.Duration) error {
	if err := c.memory.Set(key, doc, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, doc, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}
