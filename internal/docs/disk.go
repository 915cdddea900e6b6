package docs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when diskEntry format changes
const diskSchemaVersion uint16 = 1

// DefaultMaxAge is how long documentation stays fresh on disk.
const DefaultMaxAge = 7 * 24 * time.Hour

// DiskCache persists documentation fetched by another provider so later
// runs skip the fetch. Thread-safe for concurrent access.
type DiskCache struct {
	mu     sync.RWMutex
	dir    string
	next   Provider
	maxAge time.Duration
	now    func() time.Time
}

type diskEntry struct {
	Schema    uint16
	TypeName  string
	Methods   []Method
	Source    string
	FetchedAt time.Time
	Missing   bool // next provider did not know the type
}

// DefaultCacheDir returns $XDG_CACHE_HOME/<app>/docs or ~/.cache/<app>/docs.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app, "docs"), nil
}

// OpenDiskCache creates dir if needed and returns a cache in front of next.
// next may be nil: the cache then only serves what is already on disk.
func OpenDiskCache(dir string, next Provider, maxAge time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &DiskCache{dir: dir, next: next, maxAge: maxAge, now: time.Now}, nil
}

func (c *DiskCache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+".mp")
}

// Lookup implements Provider.
func (c *DiskCache) Lookup(ctx context.Context, typeName string) (*CachedDocs, error) {
	key := Key(typeName)
	var e diskEntry
	ok, err := c.get(key, &e)
	if err == nil && ok && e.Schema == diskSchemaVersion && e.TypeName == key && c.now().Sub(e.FetchedAt) < c.maxAge {
		if e.Missing {
			return nil, nil
		}
		return &CachedDocs{TypeName: e.TypeName, Methods: e.Methods, Source: e.Source, FetchedAt: e.FetchedAt}, nil
	}
	if c.next == nil {
		return nil, nil
	}
	d, err := c.next.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	e = diskEntry{Schema: diskSchemaVersion, TypeName: key, FetchedAt: c.now().UTC(), Missing: d == nil}
	if d != nil {
		e.Methods, e.Source = d.Methods, d.Source
		if !d.FetchedAt.IsZero() {
			e.FetchedAt = d.FetchedAt
		}
	}
	// запись best-effort: сбой диска не должен ломать генерацию
	_ = c.put(key, &e)
	return d, nil
}

// Put stores d on disk directly.
func (c *DiskCache) Put(d *CachedDocs) error {
	if d == nil {
		return nil
	}
	key := Key(d.TypeName)
	at := d.FetchedAt
	if at.IsZero() {
		at = c.now().UTC()
	}
	return c.put(key, &diskEntry{Schema: diskSchemaVersion, TypeName: key, Methods: d.Methods, Source: d.Source, FetchedAt: at})
}

func (c *DiskCache) put(key string, e *diskEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := msgpack.NewEncoder(f).Encode(e); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

func (c *DiskCache) get(key string, out *diskEntry) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + c.now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
