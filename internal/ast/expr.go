package ast

import (
	"rectify/internal/source"
	"rectify/internal/token"
)

// LitExpr is a literal: integer, float, string, char or bool.
type LitExpr struct {
	Sp   source.Span
	Kind token.Kind
	Text string
}

// PathExpr is a path used as a value: x, Vec::new, None.
type PathExpr struct {
	Sp   source.Span
	Path *Path
}

// UnaryExpr is -x, !x or *x.
type UnaryExpr struct {
	Sp source.Span
	Op token.Kind
	X  Expr
}

// RefExpr is &x or &mut x.
type RefExpr struct {
	Sp  source.Span
	Mut bool
	X   Expr
}

type BinaryExpr struct {
	Sp source.Span
	Op token.Kind
	X  Expr
	Y  Expr
}

// AssignExpr is x = y or a compound assignment such as x += y.
type AssignExpr struct {
	Sp source.Span
	Op token.Kind
	X  Expr
	Y  Expr
}

type CastExpr struct {
	Sp   source.Span
	X    Expr
	Type Type
}

type RangeExpr struct {
	Sp        source.Span
	Lo        Expr
	Hi        Expr
	Inclusive bool
}

// CallExpr is f(args). ArgsSp covers the parentheses.
type CallExpr struct {
	Sp     source.Span
	Fun    Expr
	Args   []Expr
	ArgsSp source.Span
}

// MethodCallExpr is recv.method::<T>(args). ArgsSp covers the parentheses.
type MethodCallExpr struct {
	Sp        source.Span
	Receiver  Expr
	Method    Ident
	Turbofish []*GenericArg
	Args      []Expr
	ArgsSp    source.Span
}

// FieldExpr is x.field or x.0.
type FieldExpr struct {
	Sp    source.Span
	X     Expr
	Field Ident
}

type IndexExpr struct {
	Sp    source.Span
	X     Expr
	Index Expr
}

// TryExpr is x?.
type TryExpr struct {
	Sp source.Span
	X  Expr
}

// AwaitExpr is x.await.
type AwaitExpr struct {
	Sp source.Span
	X  Expr
}

type ParenExpr struct {
	Sp source.Span
	X  Expr
}

type TupleExpr struct {
	Sp    source.Span
	Elems []Expr
}

// ArrayExpr is [a, b] or [x; n] (Repeat holds n).
type ArrayExpr struct {
	Sp     source.Span
	Elems  []Expr
	Repeat Expr
}

// StructExpr is Path { field: value, ..base }. BraceSp covers the braces.
type StructExpr struct {
	Sp      source.Span
	Path    *Path
	Fields  []*FieldInit
	Base    Expr
	BraceSp source.Span
}

type FieldInit struct {
	Sp        source.Span
	Name      Ident
	Value     Expr
	Shorthand bool
}

func (f *FieldInit) Span() source.Span { return f.Sp }

// BlockExpr is { stmts }, optionally unsafe, async or labelled.
type BlockExpr struct {
	Sp     source.Span
	Label  string
	Unsafe bool
	Async  bool
	Move   bool
	Stmts  []Stmt
}

// Tail returns the trailing expression without a semicolon, if any.
func (b *BlockExpr) Tail() Expr {
	if b == nil || len(b.Stmts) == 0 {
		return nil
	}
	if es, ok := b.Stmts[len(b.Stmts)-1].(*ExprStmt); ok && !es.Semi {
		return es.X
	}
	return nil
}

// IfExpr: Else is nil, a *BlockExpr or another *IfExpr.
type IfExpr struct {
	Sp   source.Span
	Cond Expr
	Then *BlockExpr
	Else Expr
}

// LetExpr is the `let pat = x` condition of if let / while let.
type LetExpr struct {
	Sp  source.Span
	Pat Pat
	X   Expr
}

type WhileExpr struct {
	Sp    source.Span
	Label string
	Cond  Expr
	Body  *BlockExpr
}

type LoopExpr struct {
	Sp    source.Span
	Label string
	Body  *BlockExpr
}

type ForExpr struct {
	Sp    source.Span
	Label string
	Pat   Pat
	Iter  Expr
	Body  *BlockExpr
}

type MatchExpr struct {
	Sp   source.Span
	X    Expr
	Arms []*MatchArm
}

type MatchArm struct {
	Sp    source.Span
	Pat   Pat
	Guard Expr
	Body  Expr
}

func (a *MatchArm) Span() source.Span { return a.Sp }

type ClosureExpr struct {
	Sp     source.Span
	Move   bool
	Async  bool
	Params []*Param
	Ret    Type
	Body   Expr
}

type ReturnExpr struct {
	Sp source.Span
	X  Expr
}

type BreakExpr struct {
	Sp    source.Span
	Label string
	X     Expr
}

type ContinueExpr struct {
	Sp    source.Span
	Label string
}

// MacroCallExpr is name!(..), name![..] or name!{..}. Args holds the
// comma-separated expressions when the body parses as such, nil otherwise.
type MacroCallExpr struct {
	Sp    source.Span
	Path  *Path
	Delim token.Kind
	Body  string
	Args  []Expr
}

// UnderscoreExpr is `_` on the left of a destructuring assignment.
type UnderscoreExpr struct {
	Sp source.Span
}

// BadExpr stands in for an expression that failed to parse.
type BadExpr struct {
	Sp source.Span
}

func (e *LitExpr) Span() source.Span        { return e.Sp }
func (e *PathExpr) Span() source.Span       { return e.Sp }
func (e *UnaryExpr) Span() source.Span      { return e.Sp }
func (e *RefExpr) Span() source.Span        { return e.Sp }
func (e *BinaryExpr) Span() source.Span     { return e.Sp }
func (e *AssignExpr) Span() source.Span     { return e.Sp }
func (e *CastExpr) Span() source.Span       { return e.Sp }
func (e *RangeExpr) Span() source.Span      { return e.Sp }
func (e *CallExpr) Span() source.Span       { return e.Sp }
func (e *MethodCallExpr) Span() source.Span { return e.Sp }
func (e *FieldExpr) Span() source.Span      { return e.Sp }
func (e *IndexExpr) Span() source.Span      { return e.Sp }
func (e *TryExpr) Span() source.Span        { return e.Sp }
func (e *AwaitExpr) Span() source.Span      { return e.Sp }
func (e *ParenExpr) Span() source.Span      { return e.Sp }
func (e *TupleExpr) Span() source.Span      { return e.Sp }
func (e *ArrayExpr) Span() source.Span      { return e.Sp }
func (e *StructExpr) Span() source.Span     { return e.Sp }
func (e *BlockExpr) Span() source.Span      { return e.Sp }
func (e *IfExpr) Span() source.Span         { return e.Sp }
func (e *LetExpr) Span() source.Span        { return e.Sp }
func (e *WhileExpr) Span() source.Span      { return e.Sp }
func (e *LoopExpr) Span() source.Span       { return e.Sp }
func (e *ForExpr) Span() source.Span        { return e.Sp }
func (e *MatchExpr) Span() source.Span      { return e.Sp }
func (e *ClosureExpr) Span() source.Span    { return e.Sp }
func (e *ReturnExpr) Span() source.Span     { return e.Sp }
func (e *BreakExpr) Span() source.Span      { return e.Sp }
func (e *ContinueExpr) Span() source.Span   { return e.Sp }
func (e *MacroCallExpr) Span() source.Span  { return e.Sp }
func (e *UnderscoreExpr) Span() source.Span { return e.Sp }
func (e *BadExpr) Span() source.Span        { return e.Sp }

func (*LitExpr) exprNode()        {}
func (*PathExpr) exprNode()       {}
func (*UnaryExpr) exprNode()      {}
func (*RefExpr) exprNode()        {}
func (*BinaryExpr) exprNode()     {}
func (*AssignExpr) exprNode()     {}
func (*CastExpr) exprNode()       {}
func (*RangeExpr) exprNode()      {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*FieldExpr) exprNode()      {}
func (*IndexExpr) exprNode()      {}
func (*TryExpr) exprNode()        {}
func (*AwaitExpr) exprNode()      {}
func (*ParenExpr) exprNode()      {}
func (*TupleExpr) exprNode()      {}
func (*ArrayExpr) exprNode()      {}
func (*StructExpr) exprNode()     {}
func (*BlockExpr) exprNode()      {}
func (*IfExpr) exprNode()         {}
func (*LetExpr) exprNode()        {}
func (*WhileExpr) exprNode()      {}
func (*LoopExpr) exprNode()       {}
func (*ForExpr) exprNode()        {}
func (*MatchExpr) exprNode()      {}
func (*ClosureExpr) exprNode()    {}
func (*ReturnExpr) exprNode()     {}
func (*BreakExpr) exprNode()      {}
func (*ContinueExpr) exprNode()   {}
func (*MacroCallExpr) exprNode()  {}
func (*UnderscoreExpr) exprNode() {}
func (*BadExpr) exprNode()        {}

// IsBlockLike reports whether an expression statement built from e may omit
// its trailing semicolon.
func IsBlockLike(e Expr) bool {
	switch x := e.(type) {
	case *BlockExpr, *IfExpr, *WhileExpr, *LoopExpr, *ForExpr, *MatchExpr:
		return true
	case *MacroCallExpr:
		return x.Delim == token.LBrace
	}
	return false
}
