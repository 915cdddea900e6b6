// Package docs provides method documentation by receiver type to the
// proposal generator: a Provider contract, builtin tables for the standard
// library, and caching layers (in-memory LRU, on-disk msgpack).
package docs

import (
	"context"
	"strings"
	"time"
)

// Method is one documented method of a type.
type Method struct {
	Name          string
	Signature     string // fn len(&self) -> usize
	Documentation string
}

// Arity returns the number of parameters in Signature, self excluded, or -1
// when the signature cannot be read.
func (m Method) Arity() int {
	params, ok := splitParams(m.Signature)
	if !ok {
		return -1
	}
	n := 0
	for _, p := range params {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasSuffix(p, "self") {
			continue
		}
		n++
	}
	return n
}

// splitParams returns the top-level comma-separated items of the parameter
// list of sig, skipping generic parameters such as <F: FnOnce(T) -> U>.
func splitParams(sig string) ([]string, bool) {
	open, angle := -1, 0
	for i := 0; i < len(sig) && open < 0; i++ {
		switch sig[i] {
		case '<':
			angle++
		case '>':
			if i > 0 && sig[i-1] != '-' {
				angle--
			}
		case '(':
			if angle == 0 {
				open = i
			}
		}
	}
	if open < 0 {
		return nil, false
	}
	depth := 0
	start := open + 1
	var params []string
	for i := open; i < len(sig); i++ {
		switch sig[i] {
		case '(', '<', '[':
			depth++
		case '>':
			if sig[i-1] == '-' {
				continue
			}
			depth--
		case ')', ']':
			depth--
			if depth == 0 {
				return append(params, sig[start:i]), true
			}
		case ',':
			if depth == 1 {
				params = append(params, sig[start:i])
				start = i + 1
			}
		}
	}
	return nil, false
}

// CachedDocs is the documentation of one type.
type CachedDocs struct {
	TypeName  string
	Methods   []Method
	Source    string // builtin, disk, ...
	FetchedAt time.Time
}

// Method returns the documented method called name.
func (d *CachedDocs) Method(name string) (Method, bool) {
	if d == nil {
		return Method{}, false
	}
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// Names returns the method names in documentation order.
func (d *CachedDocs) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.Methods))
	for i, m := range d.Methods {
		out[i] = m.Name
	}
	return out
}

// Provider looks up documentation by type name ("String", "Vec", "Option").
// Unknown types yield (nil, nil); errors are reserved for provider failures.
type Provider interface {
	Lookup(ctx context.Context, typeName string) (*CachedDocs, error)
}

// Key normalises a type string to the name providers are keyed by:
// "&mut Vec<u8>" -> "Vec", "std::string::String" -> "String", "&str" -> "str".
func Key(typeName string) string {
	s := strings.TrimSpace(typeName)
	for strings.HasPrefix(s, "&") {
		s = strings.TrimSpace(s[1:])
		if strings.HasPrefix(s, "'") {
			if i := strings.IndexByte(s, ' '); i > 0 {
				s = strings.TrimSpace(s[i+1:])
			}
		}
		if rest, ok := strings.CutPrefix(s, "mut "); ok {
			s = strings.TrimSpace(rest)
		}
	}
	if strings.HasPrefix(s, "[") {
		return "[]"
	}
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	return strings.TrimSpace(s)
}
