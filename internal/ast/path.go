package ast

import (
	"strings"

	"rectify/internal/source"
)

// Path is a sequence of segments such as std::collections::HashMap<K, V>.
type Path struct {
	Sp       source.Span
	Global   bool // leading ::
	QSelf    Type // <T as Trait>::x
	QTrait   *Path
	Segments []*PathSegment
}

func (p *Path) Span() source.Span { return p.Sp }

// Names returns the segment names without generic arguments.
func (p *Path) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		out[i] = s.Name.Name
	}
	return out
}

// String renders the path without generic arguments: std::io::Write.
func (p *Path) String() string {
	return strings.Join(p.Names(), "::")
}

// Last returns the final segment name.
func (p *Path) Last() string {
	if p == nil || len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Name.Name
}

// IsSingle reports whether the path is a plain identifier.
func (p *Path) IsSingle() bool {
	return p != nil && !p.Global && p.QSelf == nil && len(p.Segments) == 1 && len(p.Segments[0].Args) == 0
}

// PathSegment is one name in a path with optional generic arguments.
type PathSegment struct {
	Sp       source.Span
	Name     Ident
	Args     []*GenericArg
	FnInputs []Type // Fn(A, B) -> C sugar
	FnOutput Type
	FnSugar  bool
}

func (s *PathSegment) Span() source.Span { return s.Sp }

// GenericArg is one argument in <...>: a type, a lifetime, an associated
// binding (Item = T) or a const expression.
type GenericArg struct {
	Sp       source.Span
	Type     Type
	Lifetime string
	Binding  string // имя ассоциированного типа для Item = T
	Const    Expr
}

func (a *GenericArg) Span() source.Span { return a.Sp }

// Generics is a declaration-site parameter list <'a, T: Bound, const N: usize>.
type Generics struct {
	Sp     source.Span
	Params []*GenericParam
}

func (g *Generics) Span() source.Span { return g.Sp }

// Names returns the declared parameter names (lifetimes included with their quote).
func (g *Generics) Names() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.Params))
	for i, p := range g.Params {
		out[i] = p.Name
	}
	return out
}

type GenericParamKind uint8

const (
	GenericType GenericParamKind = iota
	GenericLifetime
	GenericConst
)

type GenericParam struct {
	Sp     source.Span
	Kind   GenericParamKind
	Name   string
	Bounds []Type
	Type   Type // для const N: usize
}

func (p *GenericParam) Span() source.Span { return p.Sp }
