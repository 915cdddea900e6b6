package astctx

import (
	"strings"

	"rectify/internal/ast"
	"rectify/internal/source"
	"rectify/internal/token"
)

// collectScope fills Surrounding from the ancestor chain of node. The chain
// acts as the scope stack: every block, function, closure, arm and loop on it
// contributes the bindings introduced before target.
func collectScope(f *source.File, tree *ast.File, ancestors []ast.Node, node ast.Node, target source.Span) Surrounding {
	var s Surrounding
	s.Imports = ast.Imports(tree.Items)
	collectItems(f, tree.Items, &s)

	inf := &inferrer{file: f, scope: &s, fns: collectFns(f, tree)}
	chain := append(append([]ast.Node(nil), ancestors...), node)
	selfType := ""
	for i := 0; i < len(chain)-1; i++ {
		next := chain[i+1]
		switch x := chain[i].(type) {
		case *ast.ModItem:
			// внутри модуля видны только его собственные импорты
			s.Imports = ast.Imports(x.Items)
		case *ast.ImplItem:
			selfType = TypeString(f, x.SelfType)
		case *ast.TraitItem:
			selfType = "Self"
		case *ast.FnItem:
			s.Function = function(f, x, selfType)
			s.Locals = nil
		case *ast.ClosureExpr:
			if _, inParam := next.(*ast.Param); !inParam {
				for _, p := range x.Params {
					s.Locals = append(s.Locals, paramVars(f, p)...)
				}
			}
		case *ast.BlockExpr:
			for _, st := range x.Stmts {
				if ast.Node(st) == next || st.Span().End > target.Start {
					break
				}
				switch st := st.(type) {
				case *ast.LetStmt:
					s.Locals = append(s.Locals, letVars(f, inf, st)...)
				case *ast.ItemStmt:
					collectItems(f, []ast.Item{st.Item}, &s)
					if u, ok := st.Item.(*ast.UseItem); ok {
						s.Imports = append(s.Imports, u.Tree.Flatten()...)
					}
				}
			}
		case *ast.ForExpr:
			if next == ast.Node(x.Body) {
				s.Locals = append(s.Locals, patVars(x.Pat, forElem(inf, x.Iter), x)...)
			}
		case *ast.MatchArm:
			if next != x.Pat {
				s.Locals = append(s.Locals, patVars(x.Pat, "", x)...)
			}
		case *ast.IfExpr:
			if next == ast.Node(x.Then) {
				s.Locals = append(s.Locals, letChainVars(inf, x.Cond)...)
			}
		case *ast.WhileExpr:
			if next == ast.Node(x.Body) {
				s.Locals = append(s.Locals, letChainVars(inf, x.Cond)...)
			}
		case *ast.BinaryExpr:
			if x.Op == token.AndAnd && next == x.Y {
				s.Locals = append(s.Locals, letChainVars(inf, x.X)...)
			}
		}
	}
	return s
}

func function(f *source.File, fn *ast.FnItem, selfType string) *Function {
	out := &Function{
		Name:      fn.Name.Name,
		Span:      fn.Sp,
		HasReturn: fn.Ret != nil,
		Async:     fn.Async,
		SelfType:  selfType,
		IsMethod:  fn.Self != nil,
	}
	if fn.Ret != nil {
		out.ReturnType = TypeString(f, fn.Ret)
		if out.ReturnType == "Self" && selfType != "" {
			out.ReturnType = selfType
		}
	}
	if fn.Self != nil {
		t := selfType
		switch {
		case fn.Self.Type != nil:
			t = TypeString(f, fn.Self.Type)
		case fn.Self.Ref && fn.Self.Mut:
			t = "&mut " + selfType
		case fn.Self.Ref:
			t = "&" + selfType
		}
		out.Params = append(out.Params, Variable{
			Name: "self", Type: t, Mutable: fn.Self.Mut && !fn.Self.Ref, Param: true,
			Span: fn.Self.Sp, Decl: fn.Self,
		})
	}
	for _, p := range fn.Params {
		out.Params = append(out.Params, paramVars(f, p)...)
	}
	return out
}

func paramVars(f *source.File, p *ast.Param) []Variable {
	typ := ""
	if p.Type != nil {
		typ = TypeString(f, p.Type)
	}
	vs := patVars(p.Pat, typ, p)
	for i := range vs {
		vs[i].Param = true
	}
	return vs
}

func letVars(f *source.File, inf *inferrer, st *ast.LetStmt) []Variable {
	typ := ""
	switch {
	case st.Type != nil:
		typ = TypeString(f, st.Type)
	case st.Init != nil:
		typ = inf.expr(st.Init)
	}
	return patVars(st.Pat, typ, st)
}

// patVars returns the bindings of p. typ is the type of the whole pattern and
// is attached only to a plain identifier pattern.
func patVars(p ast.Pat, typ string, decl ast.Node) []Variable {
	binds := ast.Bindings(p)
	out := make([]Variable, 0, len(binds))
	_, plain := p.(*ast.IdentPat)
	for _, b := range binds {
		v := Variable{Name: b.Name.Name, Mutable: b.Mut, Span: b.Name.Sp, Decl: decl}
		if plain && b == p && b.Sub == nil {
			v.Type = typ
			if b.Ref {
				v.Type = "&" + typ
			}
		}
		out = append(out, v)
	}
	return out
}

// letChainVars collects bindings of `let` conditions joined by &&.
func letChainVars(inf *inferrer, cond ast.Expr) []Variable {
	switch x := cond.(type) {
	case *ast.LetExpr:
		return patVars(x.Pat, "", x)
	case *ast.BinaryExpr:
		if x.Op == token.AndAnd {
			return append(letChainVars(inf, x.X), letChainVars(inf, x.Y)...)
		}
	case *ast.ParenExpr:
		return letChainVars(inf, x.X)
	}
	return nil
}

// forElem guesses the element type produced by iterating over iter.
func forElem(inf *inferrer, iter ast.Expr) string {
	switch x := iter.(type) {
	case *ast.RangeExpr:
		t := inf.expr(x.Lo)
		if t == "" {
			t = inf.expr(x.Hi)
		}
		return t
	case *ast.MethodCallExpr:
		el := elemOf(inf.expr(x.Receiver))
		if el == "" {
			return ""
		}
		switch x.Method.Name {
		case "iter":
			return "&" + el
		case "iter_mut":
			return "&mut " + el
		case "into_iter", "drain":
			return el
		}
	case *ast.RefExpr:
		if el := elemOf(inf.expr(x.X)); el != "" {
			if x.Mut {
				return "&mut " + el
			}
			return "&" + el
		}
	}
	return elemOf(inf.expr(iter))
}

// elemOf returns T for Vec<T>, [T], [T; n], VecDeque<T> and HashSet<T>.
func elemOf(t string) string {
	t = stripRefs(t)
	switch {
	case strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"):
		inner := t[1 : len(t)-1]
		if i := strings.LastIndex(inner, ";"); i >= 0 {
			inner = inner[:i]
		}
		return strings.TrimSpace(inner)
	}
	switch Head(t) {
	case "Vec", "VecDeque", "HashSet", "BTreeSet", "Option":
		open := strings.IndexByte(t, '<')
		if open < 0 || !strings.HasSuffix(t, ">") {
			return ""
		}
		if el := strings.TrimSpace(t[open+1 : len(t)-1]); el != "_" {
			return el
		}
	}
	return ""
}

// collectItems records declarations, inherent methods and trait impls.
func collectItems(f *source.File, items []ast.Item, s *Surrounding) {
	declared := func(name string) int {
		for i := range s.Types {
			if s.Types[i].Name == name {
				return i
			}
		}
		return -1
	}
	var impls []*ast.ImplItem
	var visit func(items []ast.Item)
	visit = func(items []ast.Item) {
		for _, it := range items {
			switch x := it.(type) {
			case *ast.StructItem:
				ti := TypeInfo{Name: x.Name.Name, Kind: TypeStruct}
				if x.Union {
					ti.Kind = TypeUnion
				}
				for i, fd := range x.Fields {
					name := fd.Name.Name
					if name == "" {
						name = itoa(i)
					}
					ti.Fields = append(ti.Fields, Field{Name: name, Type: TypeString(f, fd.Type)})
				}
				s.Types = append(s.Types, ti)
			case *ast.EnumItem:
				ti := TypeInfo{Name: x.Name.Name, Kind: TypeEnum}
				for _, v := range x.Variants {
					ti.Variants = append(ti.Variants, v.Name.Name)
				}
				s.Types = append(s.Types, ti)
			case *ast.TraitItem:
				s.Types = append(s.Types, TypeInfo{Name: x.Name.Name, Kind: TypeTrait})
				s.Traits = append(s.Traits, TraitInfo{Name: x.Name.Name, Methods: methods(f, x.Items)})
			case *ast.TypeAliasItem:
				s.Types = append(s.Types, TypeInfo{Name: x.Name.Name, Kind: TypeAlias})
			case *ast.ModItem:
				visit(x.Items)
			case *ast.ImplItem:
				impls = append(impls, x)
			}
		}
	}
	visit(items)

	for _, imp := range s.Imports {
		if imp.Name == "*" || imp.Name == "self" || !startsUpper(imp.Name) || declared(imp.Name) >= 0 {
			continue
		}
		s.Types = append(s.Types, TypeInfo{Name: imp.Name, Kind: TypeImported, Path: imp.Path})
	}

	for _, impl := range impls {
		typ := TypeString(f, impl.SelfType)
		ms := methods(f, impl.Items)
		if impl.Trait == nil {
			if i := declared(Head(typ)); i >= 0 {
				s.Types[i].Methods = append(s.Types[i].Methods, ms...)
			}
			continue
		}
		ti := TraitImpl{Trait: impl.Trait.String(), Type: typ}
		for _, m := range ms {
			ti.Methods = append(ti.Methods, m.Name)
		}
		s.TraitImpls = append(s.TraitImpls, ti)
	}
}

func methods(f *source.File, items []ast.Item) []Method {
	var out []Method
	for _, it := range items {
		fn, ok := it.(*ast.FnItem)
		if !ok {
			continue
		}
		sig := f.Text(fn.Sp)
		if fn.Body != nil {
			sig = f.Text(source.Span{File: fn.Sp.File, Start: fn.Sp.Start, End: fn.Body.Sp.Start})
		}
		out = append(out, Method{
			Name:      fn.Name.Name,
			Arity:     len(fn.Params),
			HasSelf:   fn.Self != nil,
			Signature: strings.TrimSuffix(strings.TrimSpace(sig), ";"),
		})
	}
	return out
}

func startsUpper(s string) bool {
	return s != "" && 'A' <= s[0] && s[0] <= 'Z'
}
