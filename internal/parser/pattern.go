package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/source"
	"rectify/internal/token"
)

// parsePattern parses a pattern with top-level alternatives: A | B | C.
func (p *Parser) parsePattern() ast.Pat {
	start := p.peek().Span
	p.eat(token.Pipe)
	first := p.parsePatternNoTopAlt()
	if !p.at(token.Pipe) {
		return first
	}
	alts := []ast.Pat{first}
	for p.eat(token.Pipe) {
		alts = append(alts, p.parsePatternNoTopAlt())
	}
	return &ast.OrPat{Sp: p.spanFrom(start), Alts: alts}
}

// parsePatternNoTopAlt parses a single pattern; used for closure and fn
// parameters where `|` cannot start an alternative.
func (p *Parser) parsePatternNoTopAlt() ast.Pat {
	tok := p.peek()
	start := tok.Span
	switch tok.Kind {
	case token.Underscore:
		p.advance()
		return &ast.WildPat{Sp: tok.Span}
	case token.DotDot:
		p.advance()
		return &ast.RestPat{Sp: tok.Span}
	case token.DotDotEq:
		p.advance()
		hi := p.parseRangePatEnd()
		return &ast.RangePat{Sp: p.spanFrom(start), Hi: hi, Inclusive: true}
	case token.Amp, token.AndAnd:
		p.eatAmp()
		mut := p.eat(token.KwMut)
		inner := p.parsePatternNoTopAlt()
		return &ast.RefPat{Sp: p.spanFrom(start), Mut: mut, Pat: inner}
	case token.LParen:
		elems, trailing := p.parsePatList(token.RParen)
		if len(elems) == 1 && !trailing {
			if _, rest := elems[0].(*ast.RestPat); !rest {
				return elems[0]
			}
		}
		return &ast.TuplePat{Sp: p.spanFrom(start), Elems: elems}
	case token.LBracket:
		elems, _ := p.parsePatList(token.RBracket)
		return &ast.SlicePat{Sp: p.spanFrom(start), Elems: elems}
	case token.KwRef, token.KwMut:
		ip := &ast.IdentPat{}
		ip.Ref = p.eat(token.KwRef)
		ip.Mut = p.eat(token.KwMut)
		if p.at(token.KwSelfValue) {
			self := p.advance()
			ip.Name = ast.Ident{Name: self.Text, Sp: self.Span}
		} else {
			name, _ := p.expectIdent()
			ip.Name = ast.Ident{Name: name.Text, Sp: name.Span}
		}
		if p.eat(token.At) {
			ip.Sub = p.parsePatternNoTopAlt()
		}
		ip.Sp = p.spanFrom(start)
		return ip
	case token.Minus, token.IntLit, token.FloatLit, token.StringLit, token.CharLit, token.KwTrue, token.KwFalse:
		return p.parseLitPat()
	case token.Ident:
		if tok.Text == "box" && p.peekN(1).Kind != token.ColonColon && p.peekN(1).Kind != token.LParen &&
			p.peekN(1).Kind != token.LBrace && canStartPat(p.peekN(1).Kind) {
			p.advance()
			return p.parsePatternNoTopAlt()
		}
		switch p.peekN(1).Kind {
		case token.ColonColon, token.LParen, token.LBrace, token.Bang, token.DotDotEq, token.DotDotDot:
		default:
			p.advance()
			ip := &ast.IdentPat{Name: ast.Ident{Name: tok.Text, Sp: tok.Span}}
			if p.eat(token.At) {
				ip.Sub = p.parsePatternNoTopAlt()
			}
			ip.Sp = p.spanFrom(start)
			return ip
		}
		return p.parsePathPat()
	case token.KwSelfValue, token.KwSelfType, token.KwSuper, token.KwCrate, token.ColonColon, token.Lt, token.Shl:
		return p.parsePathPat()
	}
	p.err(diag.SynExpectPattern, p.diagSpan(), "expected pattern, found "+describe(tok))
	if !p.at(token.EOF) && !tok.IsCloseDelim() &&
		!p.atAny(token.Comma, token.Assign, token.Pipe, token.FatArrow, token.Colon, token.Semicolon, token.KwIn) {
		p.advance()
	}
	return &ast.BadPat{Sp: p.spanFrom(start)}
}

func canStartPat(k token.Kind) bool {
	switch k {
	case token.Underscore, token.DotDot, token.Amp, token.AndAnd, token.LParen, token.LBracket,
		token.KwRef, token.KwMut, token.Minus, token.IntLit, token.FloatLit, token.StringLit, token.CharLit,
		token.KwTrue, token.KwFalse, token.Ident, token.KwSelfValue, token.KwSelfType, token.ColonColon:
		return true
	}
	return false
}

// parsePatList parses (p, p, ..) or [p, p, ..]; trailing reports a trailing comma.
func (p *Parser) parsePatList(closer token.Kind) (elems []ast.Pat, trailing bool) {
	p.advance() // ( или [
	for !p.atAny(closer, token.EOF) {
		before := p.pos
		elems = append(elems, p.parsePattern())
		trailing = false
		if !p.eat(token.Comma) {
			break
		}
		trailing = true
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(closer, diag.SynUnclosedDelimiter, "expected `,` or "+closer.String()+" in pattern, found "+describe(p.peek()))
	return elems, trailing
}

func (p *Parser) parseLitPat() ast.Pat {
	start := p.peek().Span
	neg := p.eat(token.Minus)
	tok := p.peek()
	if !tok.IsLiteral() {
		p.err(diag.SynExpectPattern, p.diagSpan(), "expected literal pattern, found "+describe(tok))
		return &ast.BadPat{Sp: p.spanFrom(start)}
	}
	p.advance()
	lit := &ast.LitExpr{Sp: tok.Span, Kind: tok.Kind, Text: tok.Text}
	lp := &ast.LitPat{Sp: p.spanFrom(start), Lit: lit, Neg: neg}
	if !p.atAny(token.DotDotEq, token.DotDotDot, token.DotDot) {
		return lp
	}
	var lo ast.Expr = lit
	if neg {
		lo = &ast.UnaryExpr{Sp: lp.Sp, Op: token.Minus, X: lit}
	}
	return p.parseRangePatRest(lo, lp.Sp)
}

func (p *Parser) parseRangePatRest(lo ast.Expr, start source.Span) ast.Pat {
	inclusive := p.advance().Kind != token.DotDot
	rp := &ast.RangePat{Lo: lo, Inclusive: inclusive}
	if p.atAny(token.Minus, token.IntLit, token.FloatLit, token.CharLit, token.Ident, token.ColonColon) {
		rp.Hi = p.parseRangePatEnd()
	}
	rp.Sp = p.spanFrom(start)
	return rp
}

// parseRangePatEnd parses the bound of a range pattern: a literal, -literal or a path.
func (p *Parser) parseRangePatEnd() ast.Expr {
	start := p.peek().Span
	switch {
	case p.at(token.Minus):
		p.advance()
		lit := p.parseLit()
		return &ast.UnaryExpr{Sp: p.spanFrom(start), Op: token.Minus, X: lit}
	case p.peek().IsLiteral():
		return p.parseLit()
	case p.atAny(token.Ident, token.ColonColon, token.KwSelfType, token.KwCrate, token.KwSuper):
		path := p.parsePathExpr()
		return &ast.PathExpr{Sp: path.Sp, Path: path}
	}
	p.err(diag.SynExpectPattern, p.diagSpan(), "expected range bound, found "+describe(p.peek()))
	return &ast.BadExpr{Sp: p.emptySpan()}
}

func (p *Parser) parsePathPat() ast.Pat {
	start := p.peek().Span
	path := p.parsePathExpr()
	switch p.peek().Kind {
	case token.LParen:
		elems, _ := p.parsePatList(token.RParen)
		return &ast.TupleStructPat{Sp: p.spanFrom(start), Path: path, Elems: elems}
	case token.LBrace:
		return p.parseStructPat(path, start)
	case token.Bang:
		if p.peekN(1).IsOpenDelim() {
			p.advance()
			p.skipTokenTree()
		}
		return &ast.PathPat{Sp: p.spanFrom(start), Path: path}
	case token.DotDotEq, token.DotDotDot:
		return p.parseRangePatRest(&ast.PathExpr{Sp: path.Sp, Path: path}, start)
	}
	return &ast.PathPat{Sp: p.spanFrom(start), Path: path}
}

func (p *Parser) parseStructPat(path *ast.Path, start source.Span) ast.Pat {
	p.advance() // {
	sp := &ast.StructPat{Path: path}
	for !p.atAny(token.RBrace, token.EOF) {
		before := p.pos
		p.parseOuterAttrs()
		if p.eat(token.DotDot) {
			sp.Rest = true
			break
		}
		fstart := p.peek().Span
		tok := p.peek()
		if (tok.Kind == token.Ident || tok.Kind == token.IntLit) && p.peekN(1).Kind == token.Colon {
			p.advance()
			p.advance()
			fp := &ast.FieldPat{Name: ast.Ident{Name: tok.Text, Sp: tok.Span}, Pat: p.parsePattern()}
			fp.Sp = p.spanFrom(fstart)
			sp.Fields = append(sp.Fields, fp)
		} else {
			ref := p.eat(token.KwRef)
			mut := p.eat(token.KwMut)
			name, ok := p.expectIdent()
			if !ok {
				p.resyncField()
				if p.pos == before {
					p.advance()
				}
				continue
			}
			ident := ast.Ident{Name: name.Text, Sp: name.Span}
			fp := &ast.FieldPat{Name: ident, Shorthand: true}
			fp.Sp = p.spanFrom(fstart)
			fp.Pat = &ast.IdentPat{Sp: fp.Sp, Name: ident, Ref: ref, Mut: mut}
			sp.Fields = append(sp.Fields, fp)
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `,` or `}` in struct pattern, found "+describe(p.peek()))
	sp.Sp = p.spanFrom(start)
	return sp
}
