package ast

import (
	"rectify/internal/source"
)

// PathType is a named type such as String, Vec<T> or std::io::Result<()>.
type PathType struct {
	Sp   source.Span
	Path *Path
}

// RefType is &'a mut T.
type RefType struct {
	Sp       source.Span
	Lifetime string
	Mut      bool
	Elem     Type
}

// PtrType is *const T or *mut T.
type PtrType struct {
	Sp   source.Span
	Mut  bool
	Elem Type
}

type SliceType struct {
	Sp   source.Span
	Elem Type
}

type ArrayType struct {
	Sp   source.Span
	Elem Type
	Len  Expr
}

// TupleType with no elements is the unit type ().
type TupleType struct {
	Sp    source.Span
	Elems []Type
}

type FnPtrType struct {
	Sp     source.Span
	Params []Type
	Ret    Type
}

// TraitObjectType is impl Bound + .. (Impl) or dyn Bound + .. .
type TraitObjectType struct {
	Sp     source.Span
	Impl   bool
	Bounds []Type
}

// LifetimeBound appears in bound lists: T: 'a.
type LifetimeBound struct {
	Sp   source.Span
	Name string
}

// MaybeBound is ?Sized.
type MaybeBound struct {
	Sp    source.Span
	Bound Type
}

type NeverType struct {
	Sp source.Span
}

// InferType is `_` in type position.
type InferType struct {
	Sp source.Span
}

// SelfType is the Self keyword in type position.
type SelfType struct {
	Sp source.Span
}

// BadType stands in for a type that failed to parse.
type BadType struct {
	Sp source.Span
}

func (t *PathType) Span() source.Span        { return t.Sp }
func (t *RefType) Span() source.Span         { return t.Sp }
func (t *PtrType) Span() source.Span         { return t.Sp }
func (t *SliceType) Span() source.Span       { return t.Sp }
func (t *ArrayType) Span() source.Span       { return t.Sp }
func (t *TupleType) Span() source.Span       { return t.Sp }
func (t *FnPtrType) Span() source.Span       { return t.Sp }
func (t *TraitObjectType) Span() source.Span { return t.Sp }
func (t *LifetimeBound) Span() source.Span   { return t.Sp }
func (t *MaybeBound) Span() source.Span      { return t.Sp }
func (t *NeverType) Span() source.Span       { return t.Sp }
func (t *InferType) Span() source.Span       { return t.Sp }
func (t *SelfType) Span() source.Span        { return t.Sp }
func (t *BadType) Span() source.Span         { return t.Sp }

func (*PathType) typeNode()        {}
func (*RefType) typeNode()         {}
func (*PtrType) typeNode()         {}
func (*SliceType) typeNode()       {}
func (*ArrayType) typeNode()       {}
func (*TupleType) typeNode()       {}
func (*FnPtrType) typeNode()       {}
func (*TraitObjectType) typeNode() {}
func (*LifetimeBound) typeNode()   {}
func (*MaybeBound) typeNode()      {}
func (*NeverType) typeNode()       {}
func (*InferType) typeNode()       {}
func (*SelfType) typeNode()        {}
func (*BadType) typeNode()         {}
