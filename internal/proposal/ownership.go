package proposal

import (
	"strings"

	"rectify/internal/ast"
	"rectify/internal/astctx"
	"rectify/internal/fix"
	"rectify/internal/source"
)

const (
	cloneConfidence     = 0.75
	mutableConfidence   = 0.85
	mutSelfConfidence   = 0.7
	cloneTemplate       = "clone_ref"
	cloneTemplateSuffix = ".clone()"
)

// movedName returns the binding named by "borrow of moved value: `v`" or
// "use of moved value: `v`".
func movedName(c *astctx.Context) string {
	if !strings.Contains(c.Diagnostic.Message, "moved value") {
		return ""
	}
	names := c.Diagnostic.Names()
	if len(names) == 0 {
		return ""
	}
	return rootIdent(names[0])
}

// addClone clones a value where it was moved, or clones a place the code
// tries to move out of a borrow.
func addClone(in *input) ([]draft, error) {
	if name := movedName(in.c); name != "" {
		return cloneAtMove(in, name)
	}
	if strings.Contains(in.c.Diagnostic.Message, "cannot move out") {
		return cloneInPlace(in)
	}
	return nil, nil
}

func addCloneIfMoved(in *input) ([]draft, error) {
	return addClone(in)
}

// cloneAtMove finds the use of name that moved it: the last plain use before
// the diagnostic, or for moves in a loop, the last one after it.
func cloneAtMove(in *input, name string) ([]draft, error) {
	c := in.c
	body := fnBody(c)
	if body == nil {
		return nil, nil
	}
	var after source.Span
	if v, ok := c.Scope.Lookup(name); ok {
		after = v.Span
	}
	var before, later *ast.PathExpr
	walkParents(body, func(n, parent ast.Node) {
		pe, ok := n.(*ast.PathExpr)
		if !ok || !pe.Path.IsSingle() || pe.Path.Last() != name || pe.Sp.Start < after.End {
			return
		}
		if !movingUse(pe, parent) || pe.Sp.Overlaps(c.Target) {
			return
		}
		if pe.Sp.End <= c.Target.Start {
			before = pe
		} else {
			later = pe
		}
	})
	site := before
	if site == nil {
		site = later
	}
	if site == nil {
		return nil, nil
	}
	return []draft{{
		edits:      []fix.Edit{fix.InsertAfter(site.Sp, cloneTemplateSuffix)},
		confidence: cloneConfidence,
		floor:      fix.RequiresReview,
		strategy:   BorrowingCorrection{Operation: "add_clone", Binding: name},
		template:   cloneTemplate,
	}}, nil
}

// movingUse reports whether a path in this position can move its value.
// Method receivers, borrows and place projections are auto-referenced.
func movingUse(pe *ast.PathExpr, parent ast.Node) bool {
	switch p := parent.(type) {
	case *ast.RefExpr:
		return false
	case *ast.MethodCallExpr:
		return p.Receiver != ast.Expr(pe)
	case *ast.FieldExpr, *ast.IndexExpr:
		return false
	case *ast.AssignExpr:
		return p.X != ast.Expr(pe)
	case *ast.MacroCallExpr:
		// println!/format! берут аргументы по ссылке
		switch p.Path.Last() {
		case "println", "print", "eprintln", "eprint", "format", "write", "writeln", "assert", "assert_eq", "assert_ne", "debug_assert", "panic":
			return false
		}
	}
	return true
}

// cloneInPlace clones the place expression at the diagnostic.
func cloneInPlace(in *input) ([]draft, error) {
	c := in.c
	e := targetExpr(c)
	if e == nil {
		return nil, nil
	}
	text := c.Text(e)
	repl := text + cloneTemplateSuffix
	if t, ok := in.g.templates.Get(cloneTemplate); ok {
		repl = t.Apply(text, "")
	}
	return []draft{{
		unit:       e.Span(),
		edits:      []fix.Edit{fix.Replace(e.Span(), repl, text)},
		confidence: cloneConfidence,
		floor:      fix.RequiresReview,
		strategy:   BorrowingCorrection{Operation: "add_clone", Binding: rootIdent(text)},
		template:   cloneTemplate,
	}}, nil
}

// walkParents calls f for every node under root with its parent.
func walkParents(root ast.Node, f func(n, parent ast.Node)) {
	var stack []ast.Node
	ast.Inspect(root, func(n ast.Node) bool {
		if n == nil {
			stack = stack[:len(stack)-1]
			return false
		}
		var parent ast.Node
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		f(n, parent)
		stack = append(stack, n)
		return true
	})
}

// immutableName returns the binding of "cannot assign twice to immutable
// variable `x`" or "cannot borrow `x` as mutable, as it is not declared as
// mutable".
func immutableName(c *astctx.Context) string {
	m := c.Diagnostic.Message
	if !strings.Contains(m, "immutable") && !strings.Contains(m, "as mutable") {
		return ""
	}
	names := c.Diagnostic.Names()
	if len(names) == 0 {
		return ""
	}
	return rootIdent(names[0])
}

// makeMutable adds `mut` to the binding, or turns `&self` into `&mut self`.
func makeMutable(in *input) ([]draft, error) {
	c := in.c
	name := immutableName(c)
	if name == "" {
		return nil, nil
	}
	if name == "self" {
		return mutSelf(in)
	}
	v, ok := c.Scope.Lookup(name)
	if !ok || v.Mutable || v.Decl == nil {
		return nil, nil
	}
	ip, ok := bindingPat(v.Decl, name)
	if !ok {
		return nil, nil
	}
	d := draft{
		edits:      []fix.Edit{fix.Insert(ip.Name.Sp, "mut ")},
		confidence: mutableConfidence,
		floor:      fix.RequiresReview,
		strategy:   BorrowingCorrection{Operation: "make_mutable", Binding: name},
	}
	if let, isLet := v.Decl.(*ast.LetStmt); isLet {
		d.unit = let.Sp
	}
	return []draft{d}, nil
}

func makeMutableIfImmutable(in *input) ([]draft, error) {
	return makeMutable(in)
}

// bindingPat finds the identifier pattern binding name in the pattern of
// decl.
func bindingPat(decl ast.Node, name string) (*ast.IdentPat, bool) {
	var root ast.Node = decl
	switch d := decl.(type) {
	case *ast.LetStmt:
		root = d.Pat
	case *ast.Param:
		root = d.Pat
	}
	var out *ast.IdentPat
	ast.Inspect(root, func(n ast.Node) bool {
		if out != nil || n == nil {
			return false
		}
		if ip, ok := n.(*ast.IdentPat); ok && ip.Name.Name == name {
			out = ip
			return false
		}
		_, isExpr := n.(ast.Expr)
		return !isExpr
	})
	return out, out != nil
}

// mutSelf changes the receiver of the enclosing method to &mut self.
func mutSelf(in *input) ([]draft, error) {
	fn, ok := enclosing[*ast.FnItem](in.c)
	if !ok || fn.Self == nil || !fn.Self.Ref || fn.Self.Mut {
		return nil, nil
	}
	text := in.c.Source.Text(fn.Self.Sp)
	if text != "&self" {
		return nil, nil
	}
	return []draft{{
		edits:      []fix.Edit{fix.Replace(fn.Self.Sp, "&mut self", text)},
		confidence: mutSelfConfidence,
		floor:      fix.RequiresReview,
		strategy:   BorrowingCorrection{Operation: "make_mutable", Binding: "self"},
	}}, nil
}
