package validate

import (
	"rectify/internal/ast"
	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/lexer"
	"rectify/internal/token"
)

// Finding is one semantic observation about proposal code.
type Finding struct {
	Severity diag.Severity
	Message  string
}

// Semantics runs the context checks on code. unit is what the syntax check
// parsed the code as; UnitFile and UnitNone skip the tree-based checks.
//
// Errors: empty code that is not a deletion; `return` with a value inside a
// function without a return type. Warnings: unwrap(), todo!/unimplemented!,
// unsafe, unbalanced delimiters.
func Semantics(code string, unit Unit, deletion bool, c *astctx.Context) []Finding {
	var out []Finding
	toks := lexer.Tokenize(virtual("<proposal>", code), lexer.Options{})
	if len(toks) <= 1 {
		if !deletion {
			out = append(out, Finding{diag.SevError, "replacement code is empty"})
		}
		return out
	}

	if c != nil && c.Scope.Function != nil && !c.Scope.Function.HasReturn {
		if unit == UnitExpr || unit == UnitStmt {
			for _, n := range parseUnit(code, unit) {
				if returnsValue(n) {
					out = append(out, Finding{diag.SevError,
						"`return` with a value in function `" + c.Scope.Function.Name + "`, which returns ()"})
					break
				}
			}
		}
	}

	var paren, bracket, brace int
	seen := map[string]bool{}
	warn := func(msg string) {
		if !seen[msg] {
			seen[msg] = true
			out = append(out, Finding{diag.SevWarning, msg})
		}
	}
	for i, t := range toks {
		next := func(k token.Kind) bool { return i+1 < len(toks) && toks[i+1].Kind == k }
		switch t.Kind {
		case token.LParen:
			paren++
		case token.RParen:
			paren--
		case token.LBracket:
			bracket++
		case token.RBracket:
			bracket--
		case token.LBrace:
			brace++
		case token.RBrace:
			brace--
		case token.KwUnsafe:
			warn("contains `unsafe`")
		case token.Ident:
			switch t.Text {
			case "unwrap":
				if i > 0 && toks[i-1].Kind == token.Dot && next(token.LParen) {
					warn("`unwrap()` may panic")
				}
			case "todo", "unimplemented":
				if next(token.Bang) {
					warn("placeholder `" + t.Text + "!` panics when reached")
				}
			}
		}
	}
	if paren != 0 || bracket != 0 || brace != 0 {
		warn("unbalanced delimiters")
	}
	return out
}

// returnsValue reports whether n contains `return <expr>` that belongs to the
// enclosing function, not to a closure or a nested fn.
func returnsValue(n ast.Node) bool {
	found := false
	ast.Inspect(n, func(n ast.Node) bool {
		if found {
			return false
		}
		switch x := n.(type) {
		case *ast.ClosureExpr, *ast.FnItem:
			return false
		case *ast.ReturnExpr:
			if x.X != nil {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
