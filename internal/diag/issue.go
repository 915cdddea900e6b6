package diag

import (
	"fmt"
	"sort"

	"rectify/internal/source"
)

// Issue is a finding of the module's own lexer or parser.
type Issue struct {
	Code     Code
	Severity Severity
	Span     source.Span
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Code.ID(), i.Severity, i.Message)
}

// Reporter: минимальный контракт получения проблем от лексера и парсера.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string)
}

// Bag collects Issues up to a limit.
type Bag struct {
	items []Issue
	max   int
}

func NewBag(max int) *Bag {
	if max <= 0 {
		max = 1
	}
	return &Bag{
		items: make([]Issue, 0, min(max, 16)),
		max:   max,
	}
}

// Add добавляет проблему, учитывая лимит.
// Возвращает false, если проблема не добавлена (достигнут лимит).
func (b *Bag) Add(i Issue) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, i)
	return true
}

// Report lets a Bag act as a Reporter directly.
func (b *Bag) Report(code Code, sev Severity, primary source.Span, msg string) {
	b.Add(Issue{Code: code, Severity: sev, Span: primary, Message: msg})
}

// HasErrors возвращает true, если есть хотя бы одна проблема с Severity >= Error
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Full reports whether the limit was reached.
func (b *Bag) Full() bool {
	return len(b.items) >= b.max
}

// Items возвращает read-only slice.
func (b *Bag) Items() []Issue {
	return b.items
}

// FirstError returns the earliest error by position, if any.
func (b *Bag) FirstError() (Issue, bool) {
	var (
		best  Issue
		found bool
	)
	for _, it := range b.items {
		if it.Severity < SevError {
			continue
		}
		if !found || it.Span.Start < best.Span.Start {
			best, found = it, true
		}
	}
	return best, found
}

// Sort сортирует по: file, start, end, severity (desc), code (asc).
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Span.File != dj.Span.File {
			return di.Span.File < dj.Span.File
		}
		if di.Span.Start != dj.Span.Start {
			return di.Span.Start < dj.Span.Start
		}
		if di.Span.End != dj.Span.End {
			return di.Span.End < dj.Span.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}

// простая дедупликация (по Code+Span)
func (b *Bag) Dedup() {
	type key struct {
		code Code
		span source.Span
	}
	seen := make(map[key]struct{}, len(b.items))
	out := b.items[:0]
	for _, it := range b.items {
		k := key{it.Code, it.Span}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	b.items = out
}
