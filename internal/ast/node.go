package ast

import (
	"rectify/internal/source"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Span() source.Span
}

// Item is a declaration that can appear at module level or inside a block.
type Item interface {
	Node
	itemNode()
}

// Stmt is a statement inside a block.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// Type is a type expression.
type Type interface {
	Node
	typeNode()
}

// Pat is a pattern.
type Pat interface {
	Node
	patNode()
}

// Ident is a name together with its location.
type Ident struct {
	Name string
	Sp   source.Span
}

func (id Ident) Span() source.Span { return id.Sp }

// File is the root of a parsed source file.
type File struct {
	Sp    source.Span
	Attrs []*Attr // inner attributes #![...]
	Items []Item
}

func (f *File) Span() source.Span { return f.Sp }

// Attr is an outer (#[..]) or inner (#![..]) attribute. Only the path and the
// raw argument text are kept.
type Attr struct {
	Sp    source.Span
	Inner bool
	Path  string
	Args  string // текст внутри скобок, без самих скобок
}

func (a *Attr) Span() source.Span { return a.Sp }
