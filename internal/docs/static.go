package docs

import (
	"context"
	"sync"
)

// Static is an in-memory provider, filled by the caller. It serves
// `rectify propose --docs` fixtures and tests.
type Static struct {
	mu    sync.RWMutex
	types map[string]*CachedDocs
}

// NewStatic returns a provider serving the given docs.
func NewStatic(docs ...*CachedDocs) *Static {
	s := &Static{types: make(map[string]*CachedDocs, len(docs))}
	for _, d := range docs {
		s.Add(d)
	}
	return s
}

// Add registers or replaces d under Key(d.TypeName).
func (s *Static) Add(d *CachedDocs) {
	if d == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Source == "" {
		d.Source = "static"
	}
	s.types[Key(d.TypeName)] = d
}

// Lookup implements Provider.
func (s *Static) Lookup(ctx context.Context, typeName string) (*CachedDocs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[Key(typeName)], nil
}
