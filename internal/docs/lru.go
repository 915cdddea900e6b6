package docs

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize bounds the in-memory cache when the config leaves it unset.
const DefaultLRUSize = 256

// LRU memoises another provider in memory. Misses are cached too, so an
// unknown type costs one backend lookup per run.
type LRU struct {
	next   Provider
	cache  *lru.Cache[string, *CachedDocs]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRU wraps next with an LRU of the given size (DefaultLRUSize if <= 0).
func NewLRU(next Provider, size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	c, err := lru.New[string, *CachedDocs](size)
	if err != nil {
		return nil, err
	}
	return &LRU{next: next, cache: c}, nil
}

// Lookup implements Provider.
func (l *LRU) Lookup(ctx context.Context, typeName string) (*CachedDocs, error) {
	key := Key(typeName)
	if d, ok := l.cache.Get(key); ok {
		l.hits.Add(1)
		return d, nil
	}
	l.misses.Add(1)
	d, err := l.next.Lookup(ctx, key)
	if err != nil {
		// ошибки не кешируем
		return nil, err
	}
	l.cache.Add(key, d)
	return d, nil
}

// Stats returns hit and miss counters and the current number of entries.
func (l *LRU) Stats() (hits, misses int64, size int) {
	return l.hits.Load(), l.misses.Load(), l.cache.Len()
}

// Purge empties the cache.
func (l *LRU) Purge() {
	l.cache.Purge()
}
