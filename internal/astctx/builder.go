package astctx

import (
	"context"
	"os"

	"fortio.org/safecast"

	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/failure"
	"rectify/internal/parser"
	"rectify/internal/source"
)

const component = "astctx"

// Builder builds Contexts. The zero value is not usable; use NewBuilder.
type Builder struct {
	readFile  func(string) ([]byte, error)
	maxErrors uint
}

// Option configures a Builder.
type Option func(*Builder)

// WithReader replaces os.ReadFile, e.g. to read through an overlay.
func WithReader(fn func(string) ([]byte, error)) Option {
	return func(b *Builder) { b.readFile = fn }
}

// WithMaxErrors caps the parser's error collection.
func WithMaxErrors(n uint) Option {
	return func(b *Builder) { b.maxErrors = n }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{readFile: os.ReadFile, maxErrors: 32}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reads path from disk and builds the Context of d.
func (b *Builder) Build(ctx context.Context, path string, d diag.Diagnostic) (*Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Wrap(component, "build", path, err)
	}
	content, err := b.readFile(path)
	if err != nil {
		if failure.KindOf(err) == failure.KindUnknown {
			return nil, failure.New(failure.KindIo, component, "read", path, err)
		}
		return nil, failure.Wrap(component, "read", path, err)
	}
	return b.BuildSource(path, content, d)
}

// BuildSource builds the Context of d against content, which is taken to be
// the current bytes of path.
func (b *Builder) BuildSource(path string, content []byte, d diag.Diagnostic) (*Context, error) {
	fs := source.NewFileSet()
	file := fs.Get(fs.Add(path, content, 0))

	bag := diag.NewBag(int(b.maxErrors)) // #nosec G115 -- small configured limit
	tree := parser.ParseFile(file, parser.Options{MaxErrors: b.maxErrors, Reporter: bag})
	if first, ok := bag.FirstError(); ok {
		line := file.LineCol(first.Span.Start).Line
		return nil, failure.New(failure.KindParse, component, "parse", path,
			&ParseError{Message: first.Message, Line: int(line)})
	}

	target, ok := Resolve(file, d.Location)
	if !ok {
		return nil, failure.New(failure.KindNodeNotFound, component, "locate", path,
			&NodeNotFoundError{Location: d.Location})
	}
	w := &walker{target: target}
	w.visit(tree)
	if w.best == nil {
		return nil, failure.New(failure.KindNodeNotFound, component, "locate", path,
			&NodeNotFoundError{Location: d.Location, Span: target})
	}

	c := &Context{
		FilePath:   path,
		Source:     file,
		Tree:       tree,
		Diagnostic: d,
		Target:     target,
		Ancestors:  w.bestPath,
		Content:    Content{Text: file.Text(w.best.Span()), Span: w.best.Span()},
	}
	c.Scope = collectScope(file, tree, w.bestPath, w.best, target)
	c.Node = classify(file, w.best, c.TypeOf)
	return c, nil
}

// Resolve maps a diagnostic location onto a byte span of f. A point
// location is widened to the identifier (or character) under it.
func Resolve(f *source.File, loc diag.Location) (source.Span, bool) {
	line, err1 := safecast.Conv[uint32](loc.Line)
	col, err2 := safecast.Conv[uint32](loc.Column)
	if err1 != nil || err2 != nil {
		return source.Span{}, false
	}
	start, ok := f.Offset(source.LineCol{Line: line, Col: col})
	if !ok {
		return source.Span{}, false
	}
	if loc.IsPoint() {
		return wordAt(f, start), true
	}
	endLine, err1 := safecast.Conv[uint32](loc.EndLine)
	endCol, err2 := safecast.Conv[uint32](loc.EndColumn)
	if err1 != nil || err2 != nil {
		return source.Span{}, false
	}
	end, ok := f.Offset(source.LineCol{Line: endLine, Col: endCol})
	if !ok || end < start {
		return source.Span{}, false
	}
	if end == start {
		return wordAt(f, start), true
	}
	return source.Span{File: f.ID, Start: start, End: end}, true
}

func wordAt(f *source.File, off uint32) source.Span {
	n := f.Len()
	if off >= n {
		return source.Span{File: f.ID, Start: n, End: n}
	}
	if !isIdentByte(f.Content[off]) {
		end := off + 1
		for end < n && f.Content[end]&0xC0 == 0x80 {
			end++
		}
		return source.Span{File: f.ID, Start: off, End: end}
	}
	start, end := off, off
	for start > 0 && isIdentByte(f.Content[start-1]) {
		start--
	}
	for end < n && isIdentByte(f.Content[end]) {
		end++
	}
	return source.Span{File: f.ID, Start: start, End: end}
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 0x80 || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9'
}

// walker descends only into nodes containing the target and remembers the
// deepest grammatical unit together with its ancestors.
type walker struct {
	target   source.Span
	path     []ast.Node
	best     ast.Node
	bestRank int
	bestPath []ast.Node
}

func (w *walker) visit(n ast.Node) {
	if !n.Span().Contains(w.target) {
		return
	}
	if r := rank(n); r > 0 && w.better(n, r) {
		w.best, w.bestRank = n, r
		w.bestPath = append([]ast.Node(nil), w.path...)
	}
	w.path = append(w.path, n)
	for _, c := range ast.Children(n) {
		w.visit(c)
	}
	w.path = w.path[:len(w.path)-1]
}

func (w *walker) better(n ast.Node, r int) bool {
	if w.best == nil {
		return true
	}
	if nl, bl := n.Span().Len(), w.best.Span().Len(); nl != bl {
		return nl < bl
	}
	return r >= w.bestRank
}
