package ast

import (
	"rectify/internal/source"
)

// FnItem is a function or method, with or without a body.
type FnItem struct {
	Sp       source.Span
	Attrs    []*Attr
	Vis      string
	Doc      string
	Const    bool
	Async    bool
	Unsafe   bool
	Name     Ident
	Generics *Generics
	Self     *SelfParam
	Params   []*Param
	Ret      Type // nil: unit
	Body     *BlockExpr
}

// SelfParam is the receiver of a method: self, &self, &mut self, mut self, self: Box<Self>.
type SelfParam struct {
	Sp   source.Span
	Ref  bool
	Mut  bool
	Type Type
}

func (s *SelfParam) Span() source.Span { return s.Sp }

// Param is a function or closure parameter. Closure params may omit Type.
type Param struct {
	Sp   source.Span
	Pat  Pat
	Type Type
}

func (p *Param) Span() source.Span { return p.Sp }

type StructKind uint8

const (
	StructNamed StructKind = iota
	StructTuple
	StructUnit
)

// StructItem declares a struct or union.
type StructItem struct {
	Sp       source.Span
	Attrs    []*Attr
	Vis      string
	Doc      string
	Union    bool
	Name     Ident
	Generics *Generics
	Kind     StructKind
	Fields   []*FieldDef
}

// FieldDef is a named or positional field of a struct or variant.
type FieldDef struct {
	Sp    source.Span
	Attrs []*Attr
	Vis   string
	Name  Ident // пусто для tuple-полей
	Type  Type
}

func (f *FieldDef) Span() source.Span { return f.Sp }

type EnumItem struct {
	Sp       source.Span
	Attrs    []*Attr
	Vis      string
	Doc      string
	Name     Ident
	Generics *Generics
	Variants []*Variant
}

type Variant struct {
	Sp           source.Span
	Name         Ident
	Kind         StructKind
	Fields       []*FieldDef
	Discriminant Expr
}

func (v *Variant) Span() source.Span { return v.Sp }

// ImplItem is an inherent impl (Trait == nil) or a trait impl.
type ImplItem struct {
	Sp       source.Span
	Attrs    []*Attr
	Unsafe   bool
	Negative bool
	Generics *Generics
	Trait    *Path
	SelfType Type
	Items    []Item
}

type TraitItem struct {
	Sp          source.Span
	Attrs       []*Attr
	Vis         string
	Doc         string
	Unsafe      bool
	Name        Ident
	Generics    *Generics
	Supertraits []Type
	Items       []Item
}

// UseItem is a use declaration; Tree holds the (possibly nested) import tree.
type UseItem struct {
	Sp    source.Span
	Attrs []*Attr
	Vis   string
	Tree  *UseTree
}

type UseTreeKind uint8

const (
	UseSimple UseTreeKind = iota // a::b or a::b as c
	UseGlob                      // a::*
	UseGroup                     // a::{b, c}
)

type UseTree struct {
	Sp       source.Span
	Prefix   []string
	Kind     UseTreeKind
	Alias    string
	Children []*UseTree
}

func (u *UseTree) Span() source.Span { return u.Sp }

type ModItem struct {
	Sp     source.Span
	Attrs  []*Attr
	Vis    string
	Name   Ident
	Inline bool
	Items  []Item
}

// ConstItem is a const or static declaration.
type ConstItem struct {
	Sp     source.Span
	Attrs  []*Attr
	Vis    string
	Static bool
	Mut    bool
	Name   Ident
	Type   Type
	Value  Expr
}

type TypeAliasItem struct {
	Sp       source.Span
	Attrs    []*Attr
	Vis      string
	Name     Ident
	Generics *Generics
	Bounds   []Type
	Type     Type // nil для ассоциированного типа без значения
}

type ExternCrateItem struct {
	Sp    source.Span
	Name  Ident
	Alias string
}

// ExternBlockItem is extern "C" { ... }.
type ExternBlockItem struct {
	Sp    source.Span
	ABI   string
	Items []Item
}

// MacroItem is an item-position macro: macro_rules! or foo! { ... }.
type MacroItem struct {
	Sp   source.Span
	Path *Path
	Name string // для macro_rules! name
	Body string
}

func (n *FnItem) Span() source.Span          { return n.Sp }
func (n *StructItem) Span() source.Span      { return n.Sp }
func (n *EnumItem) Span() source.Span        { return n.Sp }
func (n *ImplItem) Span() source.Span        { return n.Sp }
func (n *TraitItem) Span() source.Span       { return n.Sp }
func (n *UseItem) Span() source.Span         { return n.Sp }
func (n *ModItem) Span() source.Span         { return n.Sp }
func (n *ConstItem) Span() source.Span       { return n.Sp }
func (n *TypeAliasItem) Span() source.Span   { return n.Sp }
func (n *ExternCrateItem) Span() source.Span { return n.Sp }
func (n *ExternBlockItem) Span() source.Span { return n.Sp }
func (n *MacroItem) Span() source.Span       { return n.Sp }

func (*FnItem) itemNode()          {}
func (*StructItem) itemNode()      {}
func (*EnumItem) itemNode()        {}
func (*ImplItem) itemNode()        {}
func (*TraitItem) itemNode()       {}
func (*UseItem) itemNode()         {}
func (*ModItem) itemNode()         {}
func (*ConstItem) itemNode()       {}
func (*TypeAliasItem) itemNode()   {}
func (*ExternCrateItem) itemNode() {}
func (*ExternBlockItem) itemNode() {}
func (*MacroItem) itemNode()       {}
