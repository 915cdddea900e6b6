package ast

import (
	"unicode"
	"unicode/utf8"

	"rectify/internal/source"
)

// IdentPat binds a name: x, mut x, ref x, x @ 1..=5.
type IdentPat struct {
	Sp   source.Span
	Name Ident
	Ref  bool
	Mut  bool
	Sub  Pat
}

type WildPat struct {
	Sp source.Span
}

// RestPat is `..` inside tuple, slice and struct patterns.
type RestPat struct {
	Sp source.Span
}

// LitPat is a literal, possibly negated: -1, "x", 'c', true.
type LitPat struct {
	Sp  source.Span
	Lit *LitExpr
	Neg bool
}

// RangePat is lo..=hi, lo.. or ..=hi.
type RangePat struct {
	Sp        source.Span
	Lo        Expr
	Hi        Expr
	Inclusive bool
}

type PathPat struct {
	Sp   source.Span
	Path *Path
}

type TupleStructPat struct {
	Sp    source.Span
	Path  *Path
	Elems []Pat
}

type StructPat struct {
	Sp     source.Span
	Path   *Path
	Fields []*FieldPat
	Rest   bool
}

type FieldPat struct {
	Sp        source.Span
	Name      Ident
	Pat       Pat
	Shorthand bool
}

func (f *FieldPat) Span() source.Span { return f.Sp }

type TuplePat struct {
	Sp    source.Span
	Elems []Pat
}

type SlicePat struct {
	Sp    source.Span
	Elems []Pat
}

type RefPat struct {
	Sp  source.Span
	Mut bool
	Pat Pat
}

type OrPat struct {
	Sp   source.Span
	Alts []Pat
}

// BadPat stands in for a pattern that failed to parse.
type BadPat struct {
	Sp source.Span
}

func (p *IdentPat) Span() source.Span       { return p.Sp }
func (p *WildPat) Span() source.Span        { return p.Sp }
func (p *RestPat) Span() source.Span        { return p.Sp }
func (p *LitPat) Span() source.Span         { return p.Sp }
func (p *RangePat) Span() source.Span       { return p.Sp }
func (p *PathPat) Span() source.Span        { return p.Sp }
func (p *TupleStructPat) Span() source.Span { return p.Sp }
func (p *StructPat) Span() source.Span      { return p.Sp }
func (p *TuplePat) Span() source.Span       { return p.Sp }
func (p *SlicePat) Span() source.Span       { return p.Sp }
func (p *RefPat) Span() source.Span         { return p.Sp }
func (p *OrPat) Span() source.Span          { return p.Sp }
func (p *BadPat) Span() source.Span         { return p.Sp }

func (*IdentPat) patNode()       {}
func (*WildPat) patNode()        {}
func (*RestPat) patNode()        {}
func (*LitPat) patNode()         {}
func (*RangePat) patNode()       {}
func (*PathPat) patNode()        {}
func (*TupleStructPat) patNode() {}
func (*StructPat) patNode()      {}
func (*TuplePat) patNode()       {}
func (*SlicePat) patNode()       {}
func (*RefPat) patNode()         {}
func (*OrPat) patNode()          {}
func (*BadPat) patNode()         {}

// Bindings returns the identifier patterns that introduce names.
// An uppercase identifier without a sub-pattern is treated as a unit
// variant or constant (None, MAX), not as a binding. For or-patterns every
// alternative binds the same names, so only the first is inspected.
func Bindings(p Pat) []*IdentPat {
	var out []*IdentPat
	var walk func(Pat)
	walk = func(p Pat) {
		switch x := p.(type) {
		case *IdentPat:
			if x.Sub == nil && !x.Ref && !x.Mut && startsUpper(x.Name.Name) {
				return
			}
			out = append(out, x)
			if x.Sub != nil {
				walk(x.Sub)
			}
		case *TupleStructPat:
			for _, e := range x.Elems {
				walk(e)
			}
		case *StructPat:
			for _, f := range x.Fields {
				walk(f.Pat)
			}
		case *TuplePat:
			for _, e := range x.Elems {
				walk(e)
			}
		case *SlicePat:
			for _, e := range x.Elems {
				walk(e)
			}
		case *RefPat:
			walk(x.Pat)
		case *OrPat:
			if len(x.Alts) > 0 {
				walk(x.Alts[0])
			}
		}
	}
	walk(p)
	return out
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
