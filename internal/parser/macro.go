package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/source"
	"rectify/internal/token"
)

// parseMacroCall parses name!(..), name![..] or name!{..} after the path.
// The body is kept as text; Args is filled when it is a comma-separated
// list of expressions (println!, vec!, format!, assert_eq!, ...).
func (p *Parser) parseMacroCall(path *ast.Path, start source.Span) ast.Expr {
	p.advance() // !
	m := &ast.MacroCallExpr{Path: path, Delim: p.peek().Kind}
	o, c := p.skipTokenTree()
	m.Body = p.textBetween(o, c)
	if c > o {
		m.Args = p.parseMacroArgs(o+1, c)
	}
	m.Sp = p.spanFrom(start)
	return m
}

// parseMacroArgs re-parses toks[from:to] with a throwaway sub-parser.
// Any syntax error means the body is not an expression list: nil is returned
// and nothing is reported.
func (p *Parser) parseMacroArgs(from, to int) []ast.Expr {
	if from >= to {
		return []ast.Expr{}
	}
	toks := make([]token.Token, 0, to-from+1)
	toks = append(toks, p.toks[from:to]...)
	end := p.toks[to].Span
	toks = append(toks, token.Token{Kind: token.EOF, Span: source.Span{File: end.File, Start: end.Start, End: end.Start}})

	bag := diag.NewBag(1)
	sub := newParserTokens(p.file, toks, Options{MaxErrors: 1, Reporter: bag})
	var args []ast.Expr
	for !sub.at(token.EOF) {
		args = append(args, sub.parseExpr())
		if bag.HasErrors() {
			return nil
		}
		// vec![x; n] и format!("{}", x): оба разделителя допустимы
		if !sub.eat(token.Comma) && !sub.eat(token.Semicolon) {
			break
		}
	}
	if !sub.at(token.EOF) || bag.HasErrors() {
		return nil
	}
	return args
}
