package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/token"
)

// parseStmtList parses statements until stop (`}` or EOF), which is not consumed.
func (p *Parser) parseStmtList(stop token.Kind) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.at(stop) && !p.at(token.EOF) {
		before := p.pos
		if s := p.parseStmt(); s != nil {
			stmts = append(stmts, s)
		}
		if p.pos == before {
			p.resyncStmt(stop)
			if p.pos == before && !p.at(stop) {
				p.advance()
			}
		}
	}
	return stmts
}

func (p *Parser) parseStmt() ast.Stmt {
	start := p.peek().Span
	if p.at(token.Semicolon) {
		p.advance()
		return &ast.EmptyStmt{Sp: start}
	}
	doc := p.peek().DocComment()
	attrs := p.parseOuterAttrs()
	if p.at(token.KwLet) {
		return p.parseLet()
	}
	if p.atItemStart() {
		item := p.parseItemAfterAttrs(false, start, doc, attrs)
		if item == nil {
			return nil
		}
		return &ast.ItemStmt{Item: item}
	}
	if p.atBlockLikeStart() {
		e := p.parsePrimary()
		if p.atAny(token.Dot, token.Question) {
			e = p.parseExprRest(p.parsePostfix(e))
		}
		semi := p.eat(token.Semicolon)
		if !semi && !ast.IsBlockLike(e) && !p.atAny(token.RBrace, token.EOF) {
			p.err(diag.SynExpectSemicolon, p.diagSpan(), "expected `;`, found "+describe(p.peek()))
		}
		return &ast.ExprStmt{Sp: p.spanFrom(start), X: e, Semi: semi}
	}
	e := p.parseExpr()
	es := &ast.ExprStmt{X: e}
	switch {
	case p.eat(token.Semicolon):
		es.Semi = true
	case p.atAny(token.RBrace, token.EOF):
	case ast.IsBlockLike(e):
	default:
		p.err(diag.SynExpectSemicolon, p.diagSpan(), "expected `;`, found "+describe(p.peek()))
	}
	es.Sp = p.spanFrom(start)
	return es
}

func (p *Parser) parseLet() ast.Stmt {
	start := p.advance().Span // let
	s := &ast.LetStmt{Pat: p.parsePattern()}
	if p.eat(token.Colon) {
		s.Type = p.parseType()
	}
	if p.eat(token.Assign) {
		s.Init = p.parseExpr()
	}
	if p.eat(token.KwElse) {
		s.Else = p.parseBlock()
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after let statement, found "+describe(p.peek()))
	s.Sp = p.spanFrom(start)
	return s
}
