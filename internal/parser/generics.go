package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/token"
)

// parseGenerics parses an optional declaration-site list <'a, T: Bound = D, const N: usize>.
func (p *Parser) parseGenerics() *ast.Generics {
	if !p.at(token.Lt) {
		return nil
	}
	start := p.advance().Span
	g := &ast.Generics{}
	for !p.atGt() && !p.at(token.EOF) {
		before := p.pos
		p.parseOuterAttrs()
		pstart := p.peek().Span
		param := &ast.GenericParam{}
		switch p.peek().Kind {
		case token.Lifetime:
			param.Kind = ast.GenericLifetime
			param.Name = p.advance().Text
			if p.eat(token.Colon) {
				for p.at(token.Lifetime) {
					tok := p.advance()
					param.Bounds = append(param.Bounds, &ast.LifetimeBound{Sp: tok.Span, Name: tok.Text})
					if !p.eat(token.Plus) {
						break
					}
				}
			}
		case token.KwConst:
			p.advance()
			param.Kind = ast.GenericConst
			name, _ := p.expectIdent()
			param.Name = name.Text
			if _, ok := p.expect(token.Colon, diag.SynExpectType, "expected `:` after const parameter, found "+describe(p.peek())); ok {
				param.Type = p.parseType()
			}
			if p.eat(token.Assign) {
				p.parseConstArg()
			}
		case token.Ident:
			param.Kind = ast.GenericType
			param.Name = p.advance().Text
			if p.eat(token.Colon) && !p.atGt() && !p.at(token.Comma) && !p.at(token.Assign) {
				param.Bounds = p.parseBounds()
			}
			if p.eat(token.Assign) {
				param.Type = p.parseType()
			}
		default:
			p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected generic parameter, found "+describe(p.peek()))
		}
		param.Sp = p.spanFrom(pstart)
		if param.Name != "" {
			g.Params = append(g.Params, param)
		}
		if !p.eat(token.Comma) {
			break
		}
		if p.pos == before {
			p.advance()
		}
	}
	if !p.eatGt() {
		p.err(diag.SynUnclosedDelimiter, p.diagSpan(), "expected `>` to close generic parameters, found "+describe(p.peek()))
	}
	g.Sp = p.spanFrom(start)
	return g
}

// parseBounds parses Bound + Bound + 'a. Stops at anything that cannot continue a bound list.
func (p *Parser) parseBounds() []ast.Type {
	var bounds []ast.Type
	for {
		b := p.parseBound()
		if b == nil {
			break
		}
		bounds = append(bounds, b)
		if !p.eat(token.Plus) {
			break
		}
	}
	return bounds
}

func (p *Parser) parseBound() ast.Type {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.Lifetime:
		tok := p.advance()
		return &ast.LifetimeBound{Sp: tok.Span, Name: tok.Text}
	case token.Question:
		p.advance()
		inner := p.parseBound()
		if inner == nil {
			return nil
		}
		return &ast.MaybeBound{Sp: p.spanFrom(start), Bound: inner}
	case token.Tilde:
		p.advance()
		p.eat(token.KwConst)
		return p.parseBound()
	case token.LParen:
		p.advance()
		inner := p.parseBound()
		p.expect(token.RParen, diag.SynUnclosedDelimiter, "")
		return inner
	case token.KwFor:
		p.parseForLifetimes()
		return p.parseBound()
	case token.Ident, token.ColonColon, token.KwSelfType, token.KwCrate, token.KwSuper, token.KwSelfValue:
		path := p.parseTypePath()
		return &ast.PathType{Sp: path.Sp, Path: path}
	}
	return nil
}

// parseForLifetimes skips a higher-ranked binder for<'a, 'b>.
func (p *Parser) parseForLifetimes() {
	p.advance() // for
	if !p.eatLt() {
		p.err(diag.SynUnexpectedToken, p.diagSpan(), "expected `<` after `for`")
		return
	}
	for !p.atGt() && !p.at(token.EOF) {
		if !p.eat(token.Lifetime) && !p.eat(token.Comma) {
			p.advance()
		}
	}
	p.eatGt()
}

// parseWhereClause parses and discards where T: Bound, 'a: 'b, ...
func (p *Parser) parseWhereClause() {
	if !p.eat(token.KwWhere) {
		return
	}
	for !p.atAny(token.LBrace, token.Semicolon, token.Assign, token.EOF) {
		before := p.pos
		if p.at(token.KwFor) {
			p.parseForLifetimes()
		}
		if p.at(token.Lifetime) {
			p.advance()
			if p.eat(token.Colon) {
				for p.at(token.Lifetime) {
					p.advance()
					if !p.eat(token.Plus) {
						break
					}
				}
			}
		} else {
			p.parseType()
			if p.eat(token.Colon) {
				p.parseBounds()
			}
		}
		if !p.eat(token.Comma) {
			if p.pos == before {
				p.err(diag.SynUnexpectedToken, p.diagSpan(), "unexpected "+describe(p.peek())+" in where clause")
				p.advance()
				continue
			}
			break
		}
	}
}
