package proposal

import (
	"strings"

	"rectify/internal/ast"
	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/fix"
	"rectify/internal/source"
)

// targetExpr returns the expression a value-level fix should rewrite.
func targetExpr(c *astctx.Context) ast.Expr {
	switch n := c.Node.AST().(type) {
	case ast.Expr:
		return n
	case *ast.LetStmt:
		return n.Init
	case *ast.ExprStmt:
		return n.X
	}
	return nil
}

// enclosing returns the innermost node of type T among the node and its
// ancestors.
func enclosing[T ast.Node](c *astctx.Context) (T, bool) {
	if n, ok := c.Node.AST().(T); ok {
		return n, true
	}
	for i := len(c.Ancestors) - 1; i >= 0; i-- {
		if n, ok := c.Ancestors[i].(T); ok {
			return n, true
		}
	}
	var zero T
	return zero, false
}

// find returns the innermost node of type T in root whose span contains sp.
func find[T ast.Node](root ast.Node, sp source.Span) (T, bool) {
	var best T
	found := false
	ast.Inspect(root, func(n ast.Node) bool {
		if n == nil {
			return false
		}
		nsp := n.Span()
		if nsp.Start > sp.Start || nsp.End < sp.End {
			return false
		}
		if x, ok := n.(T); ok {
			best, found = x, true
		}
		return true
	})
	return best, found
}

// fnBody returns the body of the function enclosing the node.
func fnBody(c *astctx.Context) *ast.BlockExpr {
	for i := len(c.Ancestors) - 1; i >= 0; i-- {
		if fn, ok := c.Ancestors[i].(*ast.FnItem); ok {
			return fn.Body
		}
	}
	return nil
}

// useInsertion returns the edit adding `use path;` to the file: after the
// last top-level use, after inner attributes, or at the top of the file.
func useInsertion(c *astctx.Context, path string) fix.Edit {
	line := "use " + path + ";"
	var last *ast.UseItem
	for _, it := range c.Tree.Items {
		if u, ok := it.(*ast.UseItem); ok {
			last = u
		}
	}
	if last != nil {
		return fix.InsertAfter(last.Sp, "\n"+line)
	}
	start := source.Span{File: c.Source.ID}
	if n := len(c.Tree.Attrs); n > 0 {
		return fix.InsertAfter(c.Tree.Attrs[n-1].Sp, "\n"+line)
	}
	return fix.Insert(start, line+"\n")
}

// nameSpan returns the span of the first occurrence of name inside sp, or
// sp itself when name does not occur.
func nameSpan(f *source.File, sp source.Span, name string) source.Span {
	text := f.Text(sp)
	i := indexWord(text, name)
	if i < 0 {
		return sp
	}
	start := sp.Start + uint32(i) // #nosec G115 -- offset inside a span
	return source.Span{File: sp.File, Start: start, End: start + uint32(len(name))} // #nosec G115
}

// indexWord finds name in s on identifier boundaries.
func indexWord(s, name string) int {
	if name == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(s[from:], name)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(name)
		if (i == 0 || !isIdentByte(s[i-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return i
		}
		from = i + 1
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// rootIdent returns the leading identifier of a place expression text:
// "self.items[0]" -> "self", "*x" -> "x".
func rootIdent(s string) string {
	s = strings.TrimLeft(s, "*&( ")
	s = strings.TrimPrefix(s, "mut ")
	end := 0
	for end < len(s) && isIdentByte(s[end]) {
		end++
	}
	return s[:end]
}

// effectFree reports whether evaluating e cannot have side effects: literals,
// paths, references, and aggregates of those.
func effectFree(e ast.Expr) bool {
	switch x := e.(type) {
	case nil:
		return true
	case *ast.LitExpr, *ast.PathExpr, *ast.UnderscoreExpr:
		return true
	case *ast.ParenExpr:
		return effectFree(x.X)
	case *ast.RefExpr:
		return effectFree(x.X)
	case *ast.UnaryExpr:
		return effectFree(x.X)
	case *ast.BinaryExpr:
		return effectFree(x.X) && effectFree(x.Y)
	case *ast.CastExpr:
		return effectFree(x.X)
	case *ast.FieldExpr:
		return effectFree(x.X)
	case *ast.TupleExpr:
		return allEffectFree(x.Elems)
	case *ast.ArrayExpr:
		return allEffectFree(x.Elems) && effectFree(x.Repeat)
	case *ast.StructExpr:
		for _, f := range x.Fields {
			if !effectFree(f.Value) {
				return false
			}
		}
		return effectFree(x.Base)
	case *ast.RangeExpr:
		return effectFree(x.Lo) && effectFree(x.Hi)
	}
	return false
}

func allEffectFree(es []ast.Expr) bool {
	for _, e := range es {
		if !effectFree(e) {
			return false
		}
	}
	return true
}

// messageTypes extracts the expected and found types from a mismatch
// message or one of its hints: "expected `String`, found `&str`",
// "expected struct `String`, found reference `&str`".
func messageTypes(msgs ...string) (expected, found string, ok bool) {
	for _, m := range msgs {
		e, f := tickedAfter(m, "expected"), tickedAfter(m, "found")
		if e != "" && f != "" {
			return e, f, true
		}
	}
	return "", "", false
}

// tickedAfter returns the first backticked name after word in s.
func tickedAfter(s, word string) string {
	i := strings.Index(s, word)
	if i < 0 {
		return ""
	}
	names := diag.Backticked(s[i+len(word):])
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
