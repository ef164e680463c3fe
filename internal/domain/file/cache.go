package file

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// BlobInfo is the immutable part of a record the streaming path needs.
type BlobInfo struct {
	FileID       string
	MimeType     string
	OriginalName string
}

// LookupCache maps blob filenames to BlobInfo. Entries never go stale because
// filename, media type and original name are never updated after creation.
type LookupCache struct {
	lru *expirable.LRU[string, BlobInfo]
}

// NewLookupCache returns nil when size is not positive, which disables caching.
func NewLookupCache(size int, ttl time.Duration) *LookupCache {
	if size <= 0 {
		return nil
	}
	return &LookupCache{lru: expirable.NewLRU[string, BlobInfo](size, nil, ttl)}
}

func (c *LookupCache) Get(filename string) (BlobInfo, bool) {
	if c == nil {
		return BlobInfo{}, false
	}
	return c.lru.Get(filename)
}

func (c *LookupCache) Add(f *File) {
	if c == nil || f == nil {
		return
	}
	c.lru.Add(f.Filename, BlobInfo{FileID: f.ID, MimeType: f.MimeType, OriginalName: f.OriginalName})
}

func (c *LookupCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
