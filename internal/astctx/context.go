package astctx

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/source"
)

// Context is the structural view of one diagnostic.
type Context struct {
	FilePath   string
	Source     *source.File
	Tree       *ast.File
	Node       Node
	Content    Content
	Scope      Surrounding
	Diagnostic diag.Diagnostic
	// Target is the byte span the diagnostic location resolved to.
	Target source.Span
	// Ancestors lists the syntax nodes enclosing Node, outermost first.
	// Node's own syntax node is not included.
	Ancestors []ast.Node
}

// Content is the source text of the problematic node.
type Content struct {
	Text string
	Span source.Span
}

// Surrounding describes what is visible at the problematic node.
type Surrounding struct {
	Function   *Function
	Locals     []Variable
	Types      []TypeInfo
	TraitImpls []TraitImpl
	Traits     []TraitInfo
	Imports    []ast.ImportPath
}

// Function is the innermost function enclosing the node.
type Function struct {
	Name       string
	Span       source.Span
	Params     []Variable
	ReturnType string // "" для unit
	HasReturn  bool
	Async      bool
	SelfType   string // тип impl-блока для методов
	IsMethod   bool
}

// Variable is a binding visible at the node: a parameter or a local.
type Variable struct {
	Name    string
	Type    string // явный или выведенный тип, "" если неизвестен
	Mutable bool
	Param   bool
	Span    source.Span // span of the binding identifier
	Decl    ast.Node    // *ast.LetStmt, *ast.Param, or the binding pattern's owner
}

type TypeKind uint8

const (
	TypeStruct TypeKind = iota
	TypeEnum
	TypeUnion
	TypeTrait
	TypeAlias
	TypeImported
)

func (k TypeKind) String() string {
	switch k {
	case TypeStruct:
		return "struct"
	case TypeEnum:
		return "enum"
	case TypeUnion:
		return "union"
	case TypeTrait:
		return "trait"
	case TypeAlias:
		return "type"
	default:
		return "imported"
	}
}

// TypeInfo is a type declared in the file or brought in by an import.
type TypeInfo struct {
	Name     string
	Kind     TypeKind
	Path     string // полный путь для импортированных имён
	Fields   []Field
	Variants []string
	Methods  []Method // inherent methods from impl blocks in the file
}

// Field is a named struct field. Positional fields are named "0", "1", ...
type Field struct {
	Name string
	Type string
}

// Method is a function declared inside an impl or trait block.
type Method struct {
	Name      string
	Arity     int // без self
	HasSelf   bool
	Signature string
}

// TraitImpl records impl Trait for Type.
type TraitImpl struct {
	Trait   string
	Type    string
	Methods []string
}

// TraitInfo is a trait declared in the file.
type TraitInfo struct {
	Name    string
	Methods []Method
}

// Lookup returns the innermost visible binding called name.
func (s *Surrounding) Lookup(name string) (Variable, bool) {
	for i := len(s.Locals) - 1; i >= 0; i-- {
		if s.Locals[i].Name == name {
			return s.Locals[i], true
		}
	}
	if s.Function != nil {
		for i := len(s.Function.Params) - 1; i >= 0; i-- {
			if s.Function.Params[i].Name == name {
				return s.Function.Params[i], true
			}
		}
	}
	return Variable{}, false
}

// Names returns every visible binding name, innermost last, without duplicates.
func (s *Surrounding) Names() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(vs []Variable) {
		for _, v := range vs {
			if _, ok := seen[v.Name]; ok {
				continue
			}
			seen[v.Name] = struct{}{}
			out = append(out, v.Name)
		}
	}
	if s.Function != nil {
		add(s.Function.Params)
	}
	add(s.Locals)
	return out
}

// Type returns the type called name.
func (s *Surrounding) Type(name string) (TypeInfo, bool) {
	for _, t := range s.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeInfo{}, false
}

// TypeNames returns the names of all available types.
func (s *Surrounding) TypeNames() []string {
	out := make([]string, 0, len(s.Types))
	for _, t := range s.Types {
		out = append(out, t.Name)
	}
	return out
}

// Imported reports whether path (or its last segment) is imported.
func (s *Surrounding) Imported(path string) bool {
	for _, imp := range s.Imports {
		if imp.Path == path || imp.Name == path {
			return true
		}
	}
	return false
}

// Text returns the source text of n.
func (c *Context) Text(n ast.Node) string {
	return c.Source.Text(n.Span())
}

// Parent returns the nearest ancestor of the node, or nil at file level.
func (c *Context) Parent() ast.Node {
	if len(c.Ancestors) == 0 {
		return nil
	}
	return c.Ancestors[len(c.Ancestors)-1]
}

// EnclosingStmt returns the innermost statement containing the node, the node
// itself included when it is a statement.
func (c *Context) EnclosingStmt() ast.Stmt {
	if s, ok := c.Node.AST().(ast.Stmt); ok {
		return s
	}
	for i := len(c.Ancestors) - 1; i >= 0; i-- {
		if s, ok := c.Ancestors[i].(ast.Stmt); ok {
			return s
		}
	}
	return nil
}

// TypeOf infers the type of e from literals, bindings and declarations in the
// file. It returns "" when the type is unknown.
func (c *Context) TypeOf(e ast.Expr) string {
	inf := inferrer{file: c.Source, scope: &c.Scope, fns: collectFns(c.Source, c.Tree)}
	return inf.expr(e)
}
