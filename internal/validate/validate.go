// Package validate rejects proposed replacement code that does not parse or
// that is obviously wrong in its context, and attaches advisory warnings to
// the rest.
//
// Syntax results are cached by the exact code string for DefaultTTL; the
// cache is shared by all generator calls of a process.
package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"rectify/internal/ast"
	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/failure"
	"rectify/internal/parser"
	"rectify/internal/source"
)

const component = "validate"

// DefaultTTL is how long a syntax verdict stays cached.
const DefaultTTL = 5 * time.Minute

// Unit is the grammatical unit a piece of code parsed as.
type Unit uint8

const (
	UnitNone Unit = iota
	UnitExpr
	UnitStmt
	UnitItem
	UnitFile
)

func (u Unit) String() string {
	switch u {
	case UnitExpr:
		return "expression"
	case UnitStmt:
		return "statement"
	case UnitItem:
		return "item"
	case UnitFile:
		return "file"
	}
	return "none"
}

// Error lists the reasons a piece of code was rejected.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "invalid code: " + strings.Join(e.Messages, "; ")
}

type cached struct {
	unit Unit
	err  error
}

// DefaultCacheSize bounds the number of cached verdicts.
const DefaultCacheSize = 4096

// Validator checks proposal code. The zero value is not usable; use New.
type Validator struct {
	ttl   time.Duration
	size  int
	cache *expirable.LRU[string, cached] // nil when caching is off

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Option configures a Validator.
type Option func(*Validator)

// WithTTL overrides DefaultTTL. A non-positive ttl disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(v *Validator) { v.ttl = ttl }
}

// WithCacheSize overrides DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.size = n
		}
	}
}

// New creates a Validator with an empty cache.
func New(opts ...Option) *Validator {
	v := &Validator{ttl: DefaultTTL, size: DefaultCacheSize}
	for _, opt := range opts {
		opt(v)
	}
	if v.ttl > 0 {
		v.cache = expirable.NewLRU[string, cached](v.size, nil, v.ttl)
	}
	return v
}

var (
	defaultOnce sync.Once
	defaultVal  *Validator
)

// Default returns the process-wide validator.
func Default() *Validator {
	defaultOnce.Do(func() { defaultVal = New() })
	return defaultVal
}

func (v *Validator) lookup(key string) (cached, bool) {
	if v.cache == nil {
		return cached{}, false
	}
	return v.cache.Get(key)
}

func (v *Validator) store(key string, unit Unit, err error) {
	if v.cache == nil {
		return
	}
	v.cache.Add(key, cached{unit: unit, err: err})
}

// Purge drops every cached verdict.
func (v *Validator) Purge() {
	if v.cache != nil {
		v.cache.Purge()
	}
}

// Stats reports cache hits, misses and the current number of entries.
// Expired entries count until the cache sweeps them.
func (v *Validator) Stats() (hits, misses uint64, size int) {
	if v.cache != nil {
		size = v.cache.Len()
	}
	return v.hits.Load(), v.misses.Load(), size
}

// Syntax parses code as an expression, then a statement list, then an item
// list; the first that parses without errors wins. On failure the error
// carries the first message of each attempt.
func (v *Validator) Syntax(code string) (Unit, error) {
	if e, ok := v.lookup(code); ok {
		v.hits.Add(1)
		return e.unit, e.err
	}
	v.misses.Add(1)
	unit, err := checkSyntax(code)
	v.store(code, unit, err)
	return unit, err
}

// SyntaxFile parses a whole file. It validates edits whose replacement text
// is not a grammatical unit on its own (a pattern, a deletion) by checking
// the file they produce.
func (v *Validator) SyntaxFile(path string, content []byte) error {
	sum := sha256.Sum256(content)
	key := "\x00file:" + hex.EncodeToString(sum[:])
	if e, ok := v.lookup(key); ok {
		v.hits.Add(1)
		return e.err
	}
	v.misses.Add(1)
	err := checkFile(path, content)
	v.store(key, UnitFile, err)
	return err
}

func virtual(name, code string) *source.File {
	fs := source.NewFileSet()
	return fs.Get(fs.AddVirtual(name, []byte(code)))
}

func attempt(parse func(parser.Options)) (string, bool) {
	bag := diag.NewBag(4)
	parse(parser.Options{MaxErrors: 4, Reporter: bag})
	if first, ok := bag.FirstError(); ok {
		return first.Message, false
	}
	return "", true
}

func checkSyntax(code string) (Unit, error) {
	f := virtual("<proposal>", code)
	tries := []struct {
		unit  Unit
		parse func(parser.Options)
	}{
		{UnitExpr, func(o parser.Options) { parser.ParseExpr(f, o) }},
		{UnitStmt, func(o parser.Options) { parser.ParseStmts(f, o) }},
		{UnitItem, func(o parser.Options) { parser.ParseItems(f, o) }},
	}
	var msgs []string
	for _, try := range tries {
		msg, ok := attempt(try.parse)
		if ok {
			return try.unit, nil
		}
		msgs = append(msgs, try.unit.String()+": "+msg)
	}
	return UnitNone, failure.New(failure.KindValidation, component, "syntax", "", &Error{Messages: msgs})
}

func checkFile(path string, content []byte) error {
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual(path, content))
	bag := diag.NewBag(4)
	parser.ParseFile(f, parser.Options{MaxErrors: 4, Reporter: bag})
	if first, ok := bag.FirstError(); ok {
		lc := f.LineCol(first.Span.Start)
		msg := "file: " + first.Message + " at line " + strconv.Itoa(int(lc.Line))
		return failure.New(failure.KindValidation, component, "syntax", path, &Error{Messages: []string{msg}})
	}
	return nil
}

// parseUnit re-parses code as unit for semantic inspection.
func parseUnit(code string, unit Unit) []ast.Node {
	f := virtual("<proposal>", code)
	opts := parser.Options{MaxErrors: 1, Reporter: diag.NewBag(1)}
	var nodes []ast.Node
	switch unit {
	case UnitExpr:
		nodes = append(nodes, parser.ParseExpr(f, opts))
	case UnitStmt:
		for _, s := range parser.ParseStmts(f, opts) {
			nodes = append(nodes, s)
		}
	case UnitItem:
		for _, it := range parser.ParseItems(f, opts) {
			nodes = append(nodes, it)
		}
	}
	return nodes
}

// Input is one proposal to validate.
type Input struct {
	// Code is the replacement text.
	Code string
	// Delete marks an explicit deletion; empty Code is then allowed.
	Delete bool
	// File, when non-nil, is the whole file after the edit. It is parsed in
	// place of Code.
	File []byte
	// Path names File in messages.
	Path    string
	Context *astctx.Context
}

// Result is the outcome of a successful validation.
type Result struct {
	Unit     Unit
	Warnings []string
}

// Validate runs the syntax and the semantic checks. It fails on a syntax
// error or on any error-level semantic finding; warnings are returned in
// Result.
func (v *Validator) Validate(in Input) (Result, error) {
	var res Result
	if in.File != nil {
		if err := v.SyntaxFile(in.Path, in.File); err != nil {
			return res, err
		}
		res.Unit = UnitFile
	} else {
		if strings.TrimSpace(in.Code) == "" && in.Delete {
			res.Unit = UnitNone
		} else {
			unit, err := v.Syntax(in.Code)
			if err != nil {
				return res, err
			}
			res.Unit = unit
		}
	}

	findings := Semantics(in.Code, res.Unit, in.Delete, in.Context)
	var errs []string
	for _, f := range findings {
		if f.Severity == diag.SevError {
			errs = append(errs, f.Message)
			continue
		}
		res.Warnings = append(res.Warnings, f.Message)
	}
	if len(errs) > 0 {
		return res, failure.New(failure.KindValidation, component, "semantics", in.Path, &Error{Messages: errs})
	}
	return res, nil
}
