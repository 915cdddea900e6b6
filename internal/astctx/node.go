package astctx

import (
	"rectify/internal/ast"
	"rectify/internal/source"
	"rectify/internal/token"
)

// Node is the problematic node of a Context. The set of variants is closed:
// MethodCall, FieldAccess, PathRef, StructLit, Literal and Other.
type Node interface {
	Span() source.Span
	// AST returns the syntax node the variant was derived from.
	AST() ast.Node
	problemNode()
}

// MethodCall is recv.method(args).
type MethodCall struct {
	Expr         *ast.MethodCallExpr
	Receiver     string
	Method       string
	MethodSp     source.Span
	Args         []string
	ReceiverType string // пусто, если тип вывести не удалось
}

// FieldAccess is base.field.
type FieldAccess struct {
	Expr     *ast.FieldExpr
	Base     string
	Field    string
	FieldSp  source.Span
	BaseType string
}

// PathRef is a path in expression, type or pattern position.
type PathRef struct {
	Node     ast.Node
	Path     *ast.Path
	Segments []string
}

// StructLit is Name { field: value, .. }.
type StructLit struct {
	Expr    *ast.StructExpr
	Name    string
	Fields  []FieldValue
	HasBase bool
}

// FieldValue is one initializer of a struct literal.
type FieldValue struct {
	Name  string
	Value string
}

// Literal is a literal expression.
type Literal struct {
	Expr *ast.LitExpr
	Kind token.Kind
	Text string
}

// Other is any other grammatical unit; Raw holds its source text.
type Other struct {
	Node ast.Node
	Raw  string
}

func (n *MethodCall) Span() source.Span  { return n.Expr.Sp }
func (n *FieldAccess) Span() source.Span { return n.Expr.Sp }
func (n *PathRef) Span() source.Span     { return n.Node.Span() }
func (n *StructLit) Span() source.Span   { return n.Expr.Sp }
func (n *Literal) Span() source.Span     { return n.Expr.Sp }
func (n *Other) Span() source.Span       { return n.Node.Span() }

func (n *MethodCall) AST() ast.Node  { return n.Expr }
func (n *FieldAccess) AST() ast.Node { return n.Expr }
func (n *PathRef) AST() ast.Node     { return n.Node }
func (n *StructLit) AST() ast.Node   { return n.Expr }
func (n *Literal) AST() ast.Node     { return n.Expr }
func (n *Other) AST() ast.Node       { return n.Node }

func (*MethodCall) problemNode()  {}
func (*FieldAccess) problemNode() {}
func (*PathRef) problemNode()     {}
func (*StructLit) problemNode()   {}
func (*Literal) problemNode()     {}
func (*Other) problemNode()       {}

// KindName returns a short name of the variant for traces and reports.
func KindName(n Node) string {
	switch n.(type) {
	case *MethodCall:
		return "method_call"
	case *FieldAccess:
		return "field_access"
	case *PathRef:
		return "path"
	case *StructLit:
		return "struct"
	case *Literal:
		return "literal"
	default:
		return "other"
	}
}

// rank orders grammatical units for tie-breaking between nodes with the same
// span: expressions (and types, patterns) win over statements, statements over
// items. Zero means the node is not a candidate at all.
func rank(n ast.Node) int {
	switch n.(type) {
	case ast.Expr, ast.Type, ast.Pat:
		return 3
	case ast.Stmt:
		return 2
	case ast.Item:
		return 1
	}
	return 0
}

// classify derives the variant for a syntax node.
func classify(f *source.File, n ast.Node, typeOf func(ast.Expr) string) Node {
	switch x := n.(type) {
	case *ast.MethodCallExpr:
		mc := &MethodCall{
			Expr:     x,
			Receiver: f.Text(x.Receiver.Span()),
			Method:   x.Method.Name,
			MethodSp: x.Method.Sp,
		}
		for _, a := range x.Args {
			mc.Args = append(mc.Args, f.Text(a.Span()))
		}
		mc.ReceiverType = typeOf(x.Receiver)
		return mc
	case *ast.FieldExpr:
		return &FieldAccess{
			Expr:     x,
			Base:     f.Text(x.X.Span()),
			Field:    x.Field.Name,
			FieldSp:  x.Field.Sp,
			BaseType: typeOf(x.X),
		}
	case *ast.PathExpr:
		return &PathRef{Node: x, Path: x.Path, Segments: x.Path.Names()}
	case *ast.PathType:
		return &PathRef{Node: x, Path: x.Path, Segments: x.Path.Names()}
	case *ast.PathPat:
		return &PathRef{Node: x, Path: x.Path, Segments: x.Path.Names()}
	case *ast.StructExpr:
		sl := &StructLit{Expr: x, Name: x.Path.String(), HasBase: x.Base != nil}
		for _, fi := range x.Fields {
			fv := FieldValue{Name: fi.Name.Name}
			if fi.Value != nil {
				fv.Value = f.Text(fi.Value.Span())
			}
			sl.Fields = append(sl.Fields, fv)
		}
		return sl
	case *ast.LitExpr:
		return &Literal{Expr: x, Kind: x.Kind, Text: x.Text}
	}
	return &Other{Node: n, Raw: f.Text(n.Span())}
}
