package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document is a fetched source body plus the validators the server sent with it
type Document struct {
	Body         []byte    `json:"body"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Cache stores fetched documents by key. A ttl of 0 means the store's default.
type Cache interface {
	Get(key string) (*Document, bool)
	Set(key string, doc *Document, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a source location
func Key(location string) string {
	hash := sha256.Sum256([]byte(location))
	return "matmap:v1:" + hex.EncodeToString(hash[:])
}
