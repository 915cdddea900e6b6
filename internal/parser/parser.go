package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/lexer"
	"rectify/internal/source"
	"rectify/internal/token"
)

// Options tune error reporting. A zero MaxErrors means no limit.
type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough reports whether the error limit has been reached.
func (o *Options) Enough() bool {
	return o.MaxErrors > 0 && o.CurrentErrors >= o.MaxErrors
}

// Parser is a recursive-descent parser over a pre-lexed token slice.
type Parser struct {
	file     *source.File
	toks     []token.Token
	pos      int
	opts     Options
	lastSpan source.Span
	// noStruct запрещает литералы структур: в условиях if/while/match/for
	// `x {` означает начало блока.
	noStruct bool
}

func newParser(file *source.File, opts Options) *Parser {
	toks := lexer.Tokenize(file, lexer.Options{Reporter: opts.Reporter})
	return newParserTokens(file, toks, opts)
}

func newParserTokens(file *source.File, toks []token.Token, opts Options) *Parser {
	p := &Parser{file: file, toks: toks, opts: opts}
	if len(toks) > 0 {
		p.lastSpan = source.Span{File: toks[0].Span.File, Start: toks[0].Span.Start, End: toks[0].Span.Start}
	}
	return p
}

// ParseFile parses a whole source file. Parsing never stops at the first
// error: bad regions become Bad* nodes and the rest of the file is parsed.
func ParseFile(file *source.File, opts Options) *ast.File {
	p := newParser(file, opts)
	return p.parseFile()
}

// ParseExpr parses a single expression that must span the whole input.
func ParseExpr(file *source.File, opts Options) ast.Expr {
	p := newParser(file, opts)
	e := p.parseExpr()
	p.expectEOF()
	return e
}

// ParseStmts parses a sequence of statements, as found inside a block.
func ParseStmts(file *source.File, opts Options) []ast.Stmt {
	p := newParser(file, opts)
	stmts := p.parseStmtList(token.EOF)
	p.expectEOF()
	return stmts
}

// ParseItems parses a sequence of items, as found at module level.
func ParseItems(file *source.File, opts Options) []ast.Item {
	p := newParser(file, opts)
	items := p.parseItemList(token.EOF)
	p.expectEOF()
	return items
}

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{}
	start := p.peek().Span
	f.Attrs = p.parseInnerAttrs()
	f.Items = p.parseItemList(token.EOF)
	f.Sp = start.Cover(p.peek().Span)
	if p.file != nil {
		f.Sp = source.Span{File: p.file.ID, Start: 0, End: p.file.Len()}
	}
	return f
}

func (p *Parser) expectEOF() {
	if p.at(token.EOF) {
		return
	}
	tok := p.peek()
	p.err(diag.SynTrailingInput, tok.Span, "unexpected "+describe(tok)+" after end of input")
}
