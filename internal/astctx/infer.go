package astctx

import (
	"strings"
	"unicode"

	"rectify/internal/ast"
	"rectify/internal/source"
	"rectify/internal/token"
)

// TypeString renders a type node as compact text: whitespace is dropped
// except between two word characters ("&mut T", "dyn Fn()").
func TypeString(f *source.File, t ast.Type) string {
	if t == nil {
		return ""
	}
	return CompactType(f.Text(t.Span()))
}

// CompactType normalises whitespace in a type string.
func CompactType(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	pendingSpace := false
	var prev rune
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = sb.Len() > 0
			continue
		}
		if pendingSpace && isWordRune(prev) && isWordRune(r) {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		sb.WriteRune(r)
		prev = r
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return r == '_' || r == '\'' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// literalType returns the type of a literal token text.
func literalType(kind token.Kind, text string) string {
	switch kind {
	case token.StringLit:
		switch {
		case strings.HasPrefix(text, "b"):
			return "&[u8]"
		case strings.HasPrefix(text, "c"):
			return "&CStr"
		}
		return "&str"
	case token.CharLit:
		if strings.HasPrefix(text, "b") {
			return "u8"
		}
		return "char"
	case token.KwTrue, token.KwFalse:
		return "bool"
	case token.IntLit:
		if s := numericSuffix(text, intSuffixes); s != "" {
			return s
		}
		return "i32"
	case token.FloatLit:
		if s := numericSuffix(text, []string{"f32", "f64"}); s != "" {
			return s
		}
		return "f64"
	}
	return ""
}

var intSuffixes = []string{
	"i128", "u128", "isize", "usize", "i64", "u64", "i32", "u32", "i16", "u16", "i8", "u8", "f32", "f64",
}

func numericSuffix(text string, suffixes []string) string {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		// 0xf32 это шестнадцатеричное число, а не суффикс
		i := strings.LastIndexByte(text, '_')
		if i < 0 {
			return ""
		}
		text = text[i:]
	}
	for _, s := range suffixes {
		if strings.HasSuffix(text, s) {
			return s
		}
	}
	return ""
}

// inferrer computes best-effort expression types. It never fails: unknown
// types are "".
type inferrer struct {
	file  *source.File
	scope *Surrounding
	fns   map[string]string
	depth int
}

func (in *inferrer) expr(e ast.Expr) string {
	if e == nil || in.depth > 32 {
		return ""
	}
	in.depth++
	defer func() { in.depth-- }()

	switch x := e.(type) {
	case *ast.LitExpr:
		return literalType(x.Kind, x.Text)
	case *ast.PathExpr:
		return in.path(x.Path)
	case *ast.ParenExpr:
		return in.expr(x.X)
	case *ast.RefExpr:
		inner := in.expr(x.X)
		if inner == "" {
			return ""
		}
		if x.Mut {
			return "&mut " + inner
		}
		return "&" + inner
	case *ast.UnaryExpr:
		inner := in.expr(x.X)
		if x.Op == token.Star {
			return Deref(inner)
		}
		return inner
	case *ast.CastExpr:
		return TypeString(in.file, x.Type)
	case *ast.BinaryExpr:
		switch x.Op {
		case token.EqEq, token.BangEq, token.Lt, token.Gt, token.LtEq, token.GtEq, token.AndAnd, token.OrOr:
			return "bool"
		}
		if l := in.expr(x.X); l != "" {
			if x.Op == token.Plus && l == "String" {
				return "String"
			}
			return Deref(l)
		}
		return Deref(in.expr(x.Y))
	case *ast.StructExpr:
		return x.Path.String()
	case *ast.TupleExpr:
		parts := make([]string, len(x.Elems))
		for i, el := range x.Elems {
			parts[i] = in.expr(el)
			if parts[i] == "" {
				parts[i] = "_"
			}
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.ArrayExpr:
		if len(x.Elems) == 0 {
			return ""
		}
		el := in.expr(x.Elems[0])
		if el == "" {
			el = "_"
		}
		if x.Repeat != nil {
			return "[" + el + "; " + in.file.Text(x.Repeat.Span()) + "]"
		}
		return "[" + el + "; " + itoa(len(x.Elems)) + "]"
	case *ast.BlockExpr:
		return in.expr(x.Tail())
	case *ast.IfExpr:
		if x.Then != nil {
			return in.expr(x.Then.Tail())
		}
	case *ast.CallExpr:
		return in.call(x)
	case *ast.MethodCallExpr:
		return in.method(x)
	case *ast.MacroCallExpr:
		switch x.Path.Last() {
		case "format":
			return "String"
		case "vec":
			if len(x.Args) > 0 {
				if el := in.expr(x.Args[0]); el != "" {
					return "Vec<" + el + ">"
				}
			}
			return "Vec<_>"
		case "matches":
			return "bool"
		}
	case *ast.FieldExpr:
		base := in.expr(x.X)
		if ti, ok := in.scope.Type(stripRefs(base)); ok {
			for _, f := range ti.Fields {
				if f.Name == x.Field.Name {
					return f.Type
				}
			}
		}
	case *ast.RangeExpr:
		el := in.expr(x.Lo)
		if el == "" {
			el = in.expr(x.Hi)
		}
		if el == "" {
			return ""
		}
		if x.Inclusive {
			return "RangeInclusive<" + el + ">"
		}
		return "Range<" + el + ">"
	}
	return ""
}

func (in *inferrer) path(p *ast.Path) string {
	if p == nil {
		return ""
	}
	if p.IsSingle() {
		name := p.Last()
		if v, ok := in.scope.Lookup(name); ok {
			return v.Type
		}
		if name == "None" {
			return "Option<_>"
		}
		if name == "self" && in.scope.Function != nil && in.scope.Function.SelfType != "" {
			return in.scope.Function.SelfType
		}
		if ti, ok := in.scope.Type(name); ok && ti.Kind == TypeStruct {
			return name // unit struct
		}
	}
	return ""
}

func (in *inferrer) call(c *ast.CallExpr) string {
	pe, ok := c.Fun.(*ast.PathExpr)
	if !ok {
		return ""
	}
	names := pe.Path.Names()
	joined := strings.Join(names, "::")
	arg := func(i int) string {
		if i < len(c.Args) {
			if t := in.expr(c.Args[i]); t != "" {
				return t
			}
		}
		return "_"
	}
	switch joined {
	case "String::from", "String::new", "String::with_capacity", "String::from_utf8_lossy":
		return "String"
	case "Vec::new", "Vec::with_capacity":
		return "Vec<_>"
	case "Some":
		return "Option<" + arg(0) + ">"
	case "Ok":
		return "Result<" + arg(0) + ", _>"
	case "Err":
		return "Result<_, " + arg(0) + ">"
	case "Box::new", "Rc::new", "Arc::new":
		return names[0] + "<" + arg(0) + ">"
	case "PathBuf::from":
		return "PathBuf"
	}
	if ret, ok := in.fns[joined]; ok {
		return ret
	}
	if len(names) == 2 && (names[1] == "new" || names[1] == "default") {
		if _, ok := in.scope.Type(names[0]); ok {
			return names[0]
		}
	}
	if len(names) == 1 {
		// конструктор tuple-структуры
		if ti, ok := in.scope.Type(names[0]); ok && ti.Kind == TypeStruct {
			return names[0]
		}
	}
	return ""
}

func (in *inferrer) method(m *ast.MethodCallExpr) string {
	switch m.Method.Name {
	case "to_string", "to_owned", "to_uppercase", "to_lowercase", "repeat":
		recv := in.expr(m.Receiver)
		if m.Method.Name == "to_owned" && recv != "" && !isStrLike(recv) {
			return Deref(recv)
		}
		return "String"
	case "len", "count", "capacity":
		return "usize"
	case "is_empty", "is_some", "is_none", "is_ok", "is_err", "contains", "starts_with", "ends_with":
		return "bool"
	case "as_str", "trim", "trim_start", "trim_end":
		return "&str"
	case "clone", "cloned":
		return Deref(in.expr(m.Receiver))
	case "unwrap", "expect", "unwrap_or_default":
		return Unwrap(in.expr(m.Receiver))
	case "chars":
		return "Chars"
	}
	recv := stripRefs(in.expr(m.Receiver))
	if recv == "" {
		return ""
	}
	if ret, ok := in.fns[Head(recv)+"::"+m.Method.Name]; ok {
		return ret
	}
	return ""
}

func isStrLike(t string) bool {
	return t == "&str" || t == "str" || t == "&String" || t == "String"
}

// Deref removes one leading reference from a type string.
func Deref(t string) string {
	switch {
	case strings.HasPrefix(t, "&mut "):
		return t[len("&mut "):]
	case strings.HasPrefix(t, "&"):
		return t[1:]
	}
	return t
}

func stripRefs(t string) string {
	for strings.HasPrefix(t, "&") {
		t = Deref(t)
	}
	return t
}

// Head returns the outer type name: "Vec<i32>" -> "Vec", "&String" -> "String".
func Head(t string) string {
	t = stripRefs(t)
	if i := strings.IndexAny(t, "<"); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "::"); i >= 0 {
		t = t[i+2:]
	}
	return strings.TrimSpace(t)
}

// Unwrap returns T for Option<T> and Result<T, E>, and "" otherwise.
func Unwrap(t string) string {
	h := Head(t)
	if h != "Option" && h != "Result" {
		return ""
	}
	open := strings.IndexByte(t, '<')
	if open < 0 || !strings.HasSuffix(t, ">") {
		return ""
	}
	inner := t[open+1 : len(t)-1]
	depth := 0
	for i, r := range inner {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(inner[:i])
			}
		}
	}
	inner = strings.TrimSpace(inner)
	if inner == "_" {
		return ""
	}
	return inner
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// collectFns maps function names (and Type::method for associated
// functions) to their rendered return types. Self is resolved to the impl type.
func collectFns(f *source.File, tree *ast.File) map[string]string {
	out := make(map[string]string)
	if tree == nil {
		return out
	}
	render := func(t ast.Type) string { return TypeString(f, t) }
	var visitItems func(items []ast.Item)
	visitItems = func(items []ast.Item) {
		for _, it := range items {
			switch x := it.(type) {
			case *ast.FnItem:
				out[x.Name.Name] = retType(x, render)
			case *ast.ModItem:
				visitItems(x.Items)
			case *ast.ImplItem:
				selfName := Head(render(x.SelfType))
				for _, ai := range x.Items {
					if fn, ok := ai.(*ast.FnItem); ok {
						ret := retType(fn, render)
						if ret == "Self" {
							ret = selfName
						}
						out[selfName+"::"+fn.Name.Name] = ret
					}
				}
			}
		}
	}
	visitItems(tree.Items)
	return out
}

func retType(fn *ast.FnItem, render func(ast.Type) string) string {
	if fn.Ret == nil {
		return "()"
	}
	return render(fn.Ret)
}
