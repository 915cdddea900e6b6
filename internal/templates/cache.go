package templates

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"rectify/internal/typepat"
)

type entry struct {
	tmpl  Template
	usage atomic.Uint64
}

// Cache maps template names to templates and their usage counts. The set is
// loaded once, lazily, under the write lock; every other access is a read.
type Cache struct {
	mu     sync.RWMutex
	load   func() []Template
	byName map[string]*entry
	order  []*entry
}

var (
	defaultOnce  sync.Once
	defaultCache *Cache
)

// Default returns the process-wide cache with the builtin template set.
func Default() *Cache {
	defaultOnce.Do(func() { defaultCache = &Cache{load: builtin} })
	return defaultCache
}

// New returns a cache holding ts. Patterns are parsed immediately, so a
// malformed template is reported here rather than at first lookup.
func New(ts ...Template) (*Cache, error) {
	c := &Cache{}
	if err := c.fill(ts); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) fill(ts []Template) error {
	byName := make(map[string]*entry, len(ts))
	order := make([]*entry, 0, len(ts))
	for _, t := range ts {
		if _, dup := byName[t.Name]; dup {
			return fmt.Errorf("template %q defined twice", t.Name)
		}
		var err error
		if t.from, err = typepat.Parse(t.From); err != nil {
			return fmt.Errorf("template %q: from pattern: %w", t.Name, err)
		}
		if t.to, err = typepat.Parse(t.To); err != nil {
			return fmt.Errorf("template %q: to pattern: %w", t.Name, err)
		}
		e := &entry{tmpl: t}
		byName[t.Name] = e
		order = append(order, e)
	}
	c.byName, c.order = byName, order
	return nil
}

// ensure loads the lazy set on first use.
func (c *Cache) ensure() {
	c.mu.RLock()
	loaded := c.byName != nil
	c.mu.RUnlock()
	if loaded {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byName != nil {
		return
	}
	if c.load == nil {
		c.byName = map[string]*entry{}
		return
	}
	if err := c.fill(c.load()); err != nil {
		// встроенный набор статичен; ошибка здесь значит опечатку в таблице
		panic(err)
	}
}

// Get returns the template called name.
func (c *Cache) Get(name string) (Template, bool) {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[name]
	if !ok {
		return Template{}, false
	}
	return e.tmpl, true
}

// All returns every template in definition order.
func (c *Cache) All() []Template {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Template, len(c.order))
	for i, e := range c.order {
		out[i] = e.tmpl
	}
	return out
}

// ByCategory returns the templates of one category in definition order.
func (c *Cache) ByCategory(cat Category) []Template {
	var out []Template
	for _, t := range c.All() {
		if t.Category == cat {
			out = append(out, t)
		}
	}
	return out
}

// Conversion is a template matched against a concrete type pair.
type Conversion struct {
	Template Template
	From     string
	To       string
}

// Render applies the conversion to expr.
func (cv Conversion) Render(expr string) string {
	return cv.Template.Apply(expr, cv.To)
}

// Convert returns the templates converting from into to, most confident
// first. Type variables must bind to the same type on both sides, so
// "T" -> "&T" accepts ("String", "&String") but not ("String", "&str").
// Malformed type strings yield no conversions.
func (c *Cache) Convert(from, to string) []Conversion {
	ft, err := typepat.Parse(from)
	if err != nil {
		return nil
	}
	tt, err := typepat.Parse(to)
	if err != nil {
		return nil
	}
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Conversion
	for _, e := range c.order {
		t := e.tmpl
		b, ok := typepat.Match(ft, t.from, nil)
		if !ok {
			continue
		}
		if b, ok = typepat.Match(tt, t.to, b); !ok {
			continue
		}
		if t.Guard != nil && !t.Guard(ft, tt, b) {
			continue
		}
		out = append(out, Conversion{Template: t, From: ft.String(), To: tt.String()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Template.Confidence > out[j].Template.Confidence
	})
	return out
}

// Unwrappers returns templates that turn a value of type from into its inner
// value ("Option<T>" -> "T"), with the inner type they produce.
func (c *Cache) Unwrappers(from string) []Conversion {
	ft, err := typepat.Parse(from)
	if err != nil {
		return nil
	}
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Conversion
	for _, e := range c.order {
		t := e.tmpl
		if t.Category != CategoryOption && t.Category != CategoryBox {
			continue
		}
		if !t.to.IsVar() {
			continue
		}
		b, ok := typepat.Match(ft, t.from, nil)
		if !ok {
			continue
		}
		inner, ok := b[t.to.Head]
		if !ok {
			continue
		}
		out = append(out, Conversion{Template: t, From: ft.String(), To: inner.String()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Template.Confidence > out[j].Template.Confidence
	})
	return out
}

// RecordUse counts one committed fix built from template name. Unknown names
// are ignored.
func (c *Cache) RecordUse(name string) {
	c.ensure()
	c.mu.RLock()
	e, ok := c.byName[name]
	c.mu.RUnlock()
	if ok {
		e.usage.Add(1)
	}
}

// Usage returns how many committed fixes used template name.
func (c *Cache) Usage(name string) uint64 {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.byName[name]; ok {
		return e.usage.Load()
	}
	return 0
}

// Effectiveness returns Effectiveness(confidence, usage) of template name.
func (c *Cache) Effectiveness(name string) float64 {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[name]
	if !ok {
		return 0
	}
	return Effectiveness(e.tmpl.Confidence, e.usage.Load())
}
