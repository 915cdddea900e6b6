package ast

import (
	"rectify/internal/source"
)

// LetStmt is let pat: T = init else { .. };
type LetStmt struct {
	Sp   source.Span
	Pat  Pat
	Type Type
	Init Expr
	Else *BlockExpr
}

// ExprStmt wraps an expression. Semi is false for a block's tail expression
// and for block-like expressions written without a trailing semicolon.
type ExprStmt struct {
	Sp   source.Span
	X    Expr
	Semi bool
}

// ItemStmt is an item declared inside a block.
type ItemStmt struct {
	Item Item
}

// EmptyStmt is a lone semicolon.
type EmptyStmt struct {
	Sp source.Span
}

func (s *LetStmt) Span() source.Span   { return s.Sp }
func (s *ExprStmt) Span() source.Span  { return s.Sp }
func (s *ItemStmt) Span() source.Span  { return s.Item.Span() }
func (s *EmptyStmt) Span() source.Span { return s.Sp }

func (*LetStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()  {}
func (*ItemStmt) stmtNode()  {}
func (*EmptyStmt) stmtNode() {}
