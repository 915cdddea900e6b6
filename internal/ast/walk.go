package ast

// Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses the tree in depth-first, source order.
func Walk(v Visitor, node Node) {
	if node == nil || isNilNode(node) {
		return
	}
	if v = v.Visit(node); v == nil {
		return
	}
	for _, c := range Children(node) {
		Walk(v, c)
	}
	v.Visit(nil)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses the tree calling f(node) for each node; if f returns
// true, Inspect descends into the children and then calls f(nil).
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// isNilNode guards against typed nil pointers stored in interfaces.
func isNilNode(n Node) bool {
	switch x := n.(type) {
	case *BlockExpr:
		return x == nil
	case *Path:
		return x == nil
	case *Generics:
		return x == nil
	case *SelfParam:
		return x == nil
	case *UseTree:
		return x == nil
	}
	return false
}

// Children returns the direct children of node in source order.
func Children(node Node) []Node {
	var out []Node
	add := func(ns ...Node) {
		for _, n := range ns {
			if n != nil && !isNilNode(n) {
				out = append(out, n)
			}
		}
	}
	addExprs := func(es []Expr) {
		for _, e := range es {
			add(e)
		}
	}
	addTypes := func(ts []Type) {
		for _, t := range ts {
			add(t)
		}
	}
	addPats := func(ps []Pat) {
		for _, p := range ps {
			add(p)
		}
	}
	addItems := func(is []Item) {
		for _, i := range is {
			add(i)
		}
	}
	addAttrs := func(as []*Attr) {
		for _, a := range as {
			add(a)
		}
	}

	switch n := node.(type) {
	case *File:
		addAttrs(n.Attrs)
		addItems(n.Items)

	// items
	case *FnItem:
		addAttrs(n.Attrs)
		add(n.Generics)
		add(n.Self)
		for _, p := range n.Params {
			add(p)
		}
		add(n.Ret)
		add(n.Body)
	case *SelfParam:
		add(n.Type)
	case *Param:
		add(n.Pat)
		add(n.Type)
	case *StructItem:
		addAttrs(n.Attrs)
		add(n.Generics)
		for _, f := range n.Fields {
			add(f)
		}
	case *FieldDef:
		addAttrs(n.Attrs)
		add(n.Type)
	case *EnumItem:
		addAttrs(n.Attrs)
		add(n.Generics)
		for _, v := range n.Variants {
			add(v)
		}
	case *Variant:
		for _, f := range n.Fields {
			add(f)
		}
		add(n.Discriminant)
	case *ImplItem:
		addAttrs(n.Attrs)
		add(n.Generics)
		add(n.Trait)
		add(n.SelfType)
		addItems(n.Items)
	case *TraitItem:
		addAttrs(n.Attrs)
		add(n.Generics)
		addTypes(n.Supertraits)
		addItems(n.Items)
	case *UseItem:
		addAttrs(n.Attrs)
		add(n.Tree)
	case *UseTree:
		for _, c := range n.Children {
			add(c)
		}
	case *ModItem:
		addAttrs(n.Attrs)
		addItems(n.Items)
	case *ConstItem:
		addAttrs(n.Attrs)
		add(n.Type)
		add(n.Value)
	case *TypeAliasItem:
		addAttrs(n.Attrs)
		add(n.Generics)
		addTypes(n.Bounds)
		add(n.Type)
	case *ExternBlockItem:
		addItems(n.Items)
	case *MacroItem:
		add(n.Path)
	case *Generics:
		for _, p := range n.Params {
			add(p)
		}
	case *GenericParam:
		addTypes(n.Bounds)
		add(n.Type)

	// statements
	case *LetStmt:
		add(n.Pat)
		add(n.Type)
		add(n.Init)
		add(n.Else)
	case *ExprStmt:
		add(n.X)
	case *ItemStmt:
		add(n.Item)

	// paths
	case *Path:
		add(n.QSelf)
		add(n.QTrait)
		for _, s := range n.Segments {
			add(s)
		}
	case *PathSegment:
		for _, a := range n.Args {
			add(a)
		}
		addTypes(n.FnInputs)
		add(n.FnOutput)
	case *GenericArg:
		add(n.Type)
		add(n.Const)

	// expressions
	case *PathExpr:
		add(n.Path)
	case *UnaryExpr:
		add(n.X)
	case *RefExpr:
		add(n.X)
	case *BinaryExpr:
		add(n.X, n.Y)
	case *AssignExpr:
		add(n.X, n.Y)
	case *CastExpr:
		add(n.X)
		add(n.Type)
	case *RangeExpr:
		add(n.Lo)
		add(n.Hi)
	case *CallExpr:
		add(n.Fun)
		addExprs(n.Args)
	case *MethodCallExpr:
		add(n.Receiver)
		for _, a := range n.Turbofish {
			add(a)
		}
		addExprs(n.Args)
	case *FieldExpr:
		add(n.X)
	case *IndexExpr:
		add(n.X, n.Index)
	case *TryExpr:
		add(n.X)
	case *AwaitExpr:
		add(n.X)
	case *ParenExpr:
		add(n.X)
	case *TupleExpr:
		addExprs(n.Elems)
	case *ArrayExpr:
		addExprs(n.Elems)
		add(n.Repeat)
	case *StructExpr:
		add(n.Path)
		for _, f := range n.Fields {
			add(f)
		}
		add(n.Base)
	case *FieldInit:
		add(n.Value)
	case *BlockExpr:
		for _, s := range n.Stmts {
			add(s)
		}
	case *IfExpr:
		add(n.Cond)
		add(n.Then)
		add(n.Else)
	case *LetExpr:
		add(n.Pat)
		add(n.X)
	case *WhileExpr:
		add(n.Cond)
		add(n.Body)
	case *LoopExpr:
		add(n.Body)
	case *ForExpr:
		add(n.Pat)
		add(n.Iter)
		add(n.Body)
	case *MatchExpr:
		add(n.X)
		for _, a := range n.Arms {
			add(a)
		}
	case *MatchArm:
		add(n.Pat)
		add(n.Guard)
		add(n.Body)
	case *ClosureExpr:
		for _, p := range n.Params {
			add(p)
		}
		add(n.Ret)
		add(n.Body)
	case *ReturnExpr:
		add(n.X)
	case *BreakExpr:
		add(n.X)
	case *MacroCallExpr:
		add(n.Path)
		addExprs(n.Args)

	// types
	case *PathType:
		add(n.Path)
	case *RefType:
		add(n.Elem)
	case *PtrType:
		add(n.Elem)
	case *SliceType:
		add(n.Elem)
	case *ArrayType:
		add(n.Elem)
		add(n.Len)
	case *TupleType:
		addTypes(n.Elems)
	case *FnPtrType:
		addTypes(n.Params)
		add(n.Ret)
	case *TraitObjectType:
		addTypes(n.Bounds)
	case *MaybeBound:
		add(n.Bound)

	// patterns
	case *IdentPat:
		add(n.Sub)
	case *LitPat:
		add(n.Lit)
	case *RangePat:
		add(n.Lo)
		add(n.Hi)
	case *PathPat:
		add(n.Path)
	case *TupleStructPat:
		add(n.Path)
		addPats(n.Elems)
	case *StructPat:
		add(n.Path)
		for _, f := range n.Fields {
			add(f)
		}
	case *FieldPat:
		add(n.Pat)
	case *TuplePat:
		addPats(n.Elems)
	case *SlicePat:
		addPats(n.Elems)
	case *RefPat:
		add(n.Pat)
	case *OrPat:
		addPats(n.Alts)
	}
	return out
}
