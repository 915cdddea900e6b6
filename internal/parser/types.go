package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/token"
)

// parseType parses a type. impl/dyn consume their whole + bound list.
func (p *Parser) parseType() ast.Type {
	start := p.peek().Span
	switch tok := p.peek(); tok.Kind {
	case token.Amp, token.AndAnd:
		return p.parseRefType()
	case token.Star:
		p.advance()
		pt := &ast.PtrType{}
		switch {
		case p.eat(token.KwMut):
			pt.Mut = true
		case p.eat(token.KwConst):
		default:
			p.err(diag.SynExpectType, p.diagSpan(), "expected `mut` or `const` after `*` in pointer type")
		}
		pt.Elem = p.parseType()
		pt.Sp = p.spanFrom(start)
		return pt
	case token.LBracket:
		p.advance()
		elem := p.parseType()
		if p.eat(token.Semicolon) {
			n := p.exprAllowStruct()
			p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected `]` to close array type, found "+describe(p.peek()))
			return &ast.ArrayType{Sp: p.spanFrom(start), Elem: elem, Len: n}
		}
		p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected `]` to close slice type, found "+describe(p.peek()))
		return &ast.SliceType{Sp: p.spanFrom(start), Elem: elem}
	case token.LParen:
		p.advance()
		var elems []ast.Type
		trailingComma := false
		for !p.atAny(token.RParen, token.EOF) {
			before := p.pos
			elems = append(elems, p.parseType())
			trailingComma = false
			if !p.eat(token.Comma) {
				break
			}
			trailingComma = true
			if p.pos == before {
				p.advance()
			}
		}
		p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected `)` to close tuple type, found "+describe(p.peek()))
		if len(elems) == 1 && !trailingComma {
			return elems[0]
		}
		return &ast.TupleType{Sp: p.spanFrom(start), Elems: elems}
	case token.Bang:
		p.advance()
		return &ast.NeverType{Sp: p.spanFrom(start)}
	case token.Underscore:
		p.advance()
		return &ast.InferType{Sp: p.spanFrom(start)}
	case token.KwFn, token.KwUnsafe, token.KwExtern:
		return p.parseFnPtrType()
	case token.KwFor:
		p.parseForLifetimes()
		if p.atAny(token.KwFn, token.KwUnsafe, token.KwExtern) {
			return p.parseFnPtrType()
		}
		return p.parseType()
	case token.KwImpl, token.KwDyn:
		p.advance()
		bounds := p.parseBounds()
		if len(bounds) == 0 {
			p.err(diag.SynExpectType, p.diagSpan(), "expected at least one trait bound, found "+describe(p.peek()))
		}
		return &ast.TraitObjectType{Sp: p.spanFrom(start), Impl: tok.Kind == token.KwImpl, Bounds: bounds}
	case token.Question:
		if b := p.parseBound(); b != nil {
			return b
		}
	case token.KwSelfType:
		if p.peekN(1).Kind != token.ColonColon {
			p.advance()
			return &ast.SelfType{Sp: tok.Span}
		}
		path := p.parseTypePath()
		return &ast.PathType{Sp: path.Sp, Path: path}
	case token.Ident, token.ColonColon, token.KwCrate, token.KwSuper, token.KwSelfValue, token.Lt, token.Shl:
		path := p.parseTypePath()
		return &ast.PathType{Sp: path.Sp, Path: path}
	case token.Lifetime:
		p.advance()
		return &ast.LifetimeBound{Sp: tok.Span, Name: tok.Text}
	}
	p.err(diag.SynExpectType, p.diagSpan(), "expected type, found "+describe(p.peek()))
	if !p.at(token.EOF) && !p.peek().IsCloseDelim() && !p.atAny(token.Comma, token.Semicolon, token.Assign, token.LBrace) && !p.atGt() {
		p.advance()
	}
	return &ast.BadType{Sp: p.spanFrom(start)}
}

func (p *Parser) parseRefType() ast.Type {
	start := p.peek().Span
	p.eatAmp()
	rt := &ast.RefType{}
	if p.at(token.Lifetime) {
		rt.Lifetime = p.advance().Text
	}
	rt.Mut = p.eat(token.KwMut)
	rt.Elem = p.parseType()
	rt.Sp = p.spanFrom(start)
	return rt
}

func (p *Parser) parseFnPtrType() ast.Type {
	start := p.peek().Span
	p.eat(token.KwUnsafe)
	if p.eat(token.KwExtern) {
		p.eat(token.StringLit)
	}
	ft := &ast.FnPtrType{}
	if _, ok := p.expect(token.KwFn, diag.SynExpectType, "expected `fn`, found "+describe(p.peek())); !ok {
		return &ast.BadType{Sp: p.spanFrom(start)}
	}
	ft.Params = p.parseParenTypes()
	if p.eat(token.Arrow) {
		ft.Ret = p.parseType()
	}
	ft.Sp = p.spanFrom(start)
	return ft
}

// parseParenTypes parses (A, B, name: C). Parameter names in fn pointers are dropped.
func (p *Parser) parseParenTypes() []ast.Type {
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected `(`, found "+describe(p.peek())); !ok {
		return nil
	}
	var out []ast.Type
	for !p.atAny(token.RParen, token.EOF) {
		before := p.pos
		if (p.at(token.Ident) || p.at(token.Underscore)) && p.peekN(1).Kind == token.Colon {
			p.advance()
			p.advance()
		}
		if p.eat(token.DotDotDot) {
			break
		}
		out = append(out, p.parseType())
		if !p.eat(token.Comma) {
			break
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected `)`, found "+describe(p.peek()))
	return out
}

// parseTypePath parses a path in type context: generic args need no turbofish
// and Fn(A) -> B sugar is allowed.
func (p *Parser) parseTypePath() *ast.Path {
	return p.parsePath(true)
}

// parsePathExpr parses a path in expression or pattern context: generic
// arguments require ::<..>.
func (p *Parser) parsePathExpr() *ast.Path {
	return p.parsePath(false)
}

func (p *Parser) parsePath(typeCtx bool) *ast.Path {
	start := p.peek().Span
	path := &ast.Path{}
	if p.atAny(token.Lt, token.Shl) {
		p.eatLt()
		path.QSelf = p.parseType()
		if p.eat(token.KwAs) {
			path.QTrait = p.parseTypePath()
		}
		if !p.eatGt() {
			p.err(diag.SynUnclosedDelimiter, p.diagSpan(), "expected `>` to close qualified path, found "+describe(p.peek()))
		}
		if _, ok := p.expect(token.ColonColon, diag.SynUnexpectedToken, "expected `::` after qualified path, found "+describe(p.peek())); !ok {
			path.Sp = p.spanFrom(start)
			return path
		}
	} else if p.eat(token.ColonColon) {
		path.Global = true
	}
	for {
		seg := p.parsePathSegment(typeCtx)
		if seg == nil {
			break
		}
		path.Segments = append(path.Segments, seg)
		// `::` продолжает путь, только если за ним идёт сегмент (а не `<`, `{` или `*` у use)
		if !p.at(token.ColonColon) || !isPathSegmentStart(p.peekN(1).Kind) {
			break
		}
		p.advance()
	}
	if len(path.Segments) == 0 {
		p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected path, found "+describe(p.peek()))
	}
	path.Sp = p.spanFrom(start)
	return path
}

func isPathSegmentStart(k token.Kind) bool {
	switch k {
	case token.Ident, token.KwSelfValue, token.KwSelfType, token.KwSuper, token.KwCrate:
		return true
	}
	return false
}

func (p *Parser) parsePathSegment(typeCtx bool) *ast.PathSegment {
	tok := p.peek()
	if !isPathSegmentStart(tok.Kind) {
		return nil
	}
	p.advance()
	seg := &ast.PathSegment{Name: ast.Ident{Name: tok.Text, Sp: tok.Span}}
	switch {
	case typeCtx && p.atAny(token.Lt, token.Shl):
		seg.Args = p.parseGenericArgs()
	case p.at(token.ColonColon) && (p.peekN(1).Kind == token.Lt || p.peekN(1).Kind == token.Shl):
		p.advance()
		seg.Args = p.parseGenericArgs()
	case typeCtx && p.at(token.LParen):
		seg.FnSugar = true
		seg.FnInputs = p.parseParenTypes()
		if p.eat(token.Arrow) {
			seg.FnOutput = p.parseTypeNoPlus()
		}
	}
	seg.Sp = p.spanFrom(tok.Span)
	return seg
}

// parseTypeNoPlus parses the output of Fn sugar: in `impl Fn() -> T + Send`
// the `+ Send` belongs to the outer bound list.
func (p *Parser) parseTypeNoPlus() ast.Type {
	if p.atAny(token.KwImpl, token.KwDyn) {
		start := p.advance()
		b := p.parseBound()
		var bounds []ast.Type
		if b != nil {
			bounds = append(bounds, b)
		}
		return &ast.TraitObjectType{Sp: p.spanFrom(start.Span), Impl: start.Kind == token.KwImpl, Bounds: bounds}
	}
	return p.parseType()
}

// parseGenericArgs parses <T, 'a, Item = U, N, { expr }> at a `<` or `<<`.
func (p *Parser) parseGenericArgs() []*ast.GenericArg {
	p.eatLt()
	var args []*ast.GenericArg
	for !p.atGt() && !p.at(token.EOF) {
		before := p.pos
		start := p.peek().Span
		arg := &ast.GenericArg{}
		switch tok := p.peek(); {
		case tok.Kind == token.Lifetime:
			arg.Lifetime = p.advance().Text
		case tok.Kind == token.Ident && p.peekN(1).Kind == token.Assign:
			p.advance()
			p.advance()
			arg.Binding = tok.Text
			arg.Type = p.parseType()
		case tok.Kind == token.Ident && p.peekN(1).Kind == token.Colon:
			// ассоциированное ограничение Item: Bound
			p.advance()
			p.advance()
			arg.Binding = tok.Text
			bounds := p.parseBounds()
			arg.Type = &ast.TraitObjectType{Sp: p.spanFrom(start), Impl: true, Bounds: bounds}
		case tok.Kind == token.LBrace, tok.Kind == token.Minus, tok.IsLiteral():
			arg.Const = p.parseConstArg()
		default:
			arg.Type = p.parseType()
		}
		arg.Sp = p.spanFrom(start)
		args = append(args, arg)
		if !p.eat(token.Comma) {
			break
		}
		if p.pos == before {
			p.advance()
		}
	}
	if !p.eatGt() {
		p.err(diag.SynUnclosedDelimiter, p.diagSpan(), "expected `>` to close generic arguments, found "+describe(p.peek()))
	}
	return args
}

// parseConstArg parses a const generic argument: a literal, -literal or { expr }.
func (p *Parser) parseConstArg() ast.Expr {
	start := p.peek().Span
	switch {
	case p.at(token.LBrace):
		return p.parseBlock()
	case p.at(token.Minus):
		p.advance()
		lit := p.parseLit()
		return &ast.UnaryExpr{Sp: p.spanFrom(start), Op: token.Minus, X: lit}
	case p.peek().IsLiteral():
		return p.parseLit()
	}
	p.err(diag.SynExpectExpression, p.diagSpan(), "expected const argument, found "+describe(p.peek()))
	return &ast.BadExpr{Sp: p.emptySpan()}
}

func (p *Parser) parseLit() ast.Expr {
	tok := p.peek()
	if !tok.IsLiteral() {
		p.err(diag.SynExpectExpression, p.diagSpan(), "expected literal, found "+describe(tok))
		return &ast.BadExpr{Sp: p.emptySpan()}
	}
	p.advance()
	return &ast.LitExpr{Sp: tok.Span, Kind: tok.Kind, Text: tok.Text}
}
