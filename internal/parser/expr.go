package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/source"
	"rectify/internal/token"
)

// Приоритеты бинарных операторов, от слабого к сильному.
const (
	precNone = iota
	precOrOr
	precAndAnd
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdd
	precMul
	precCast
)

func binaryPrec(k token.Kind) int {
	switch k {
	case token.OrOr:
		return precOrOr
	case token.AndAnd:
		return precAndAnd
	case token.EqEq, token.BangEq, token.Lt, token.Gt, token.LtEq, token.GtEq:
		return precCompare
	case token.Pipe:
		return precBitOr
	case token.Caret:
		return precBitXor
	case token.Amp:
		return precBitAnd
	case token.Shl, token.Shr:
		return precShift
	case token.Plus, token.Minus:
		return precAdd
	case token.Star, token.Slash, token.Percent:
		return precMul
	}
	return precNone
}

func isAssignOp(k token.Kind) bool {
	switch k {
	case token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign, token.SlashAssign,
		token.PercentAssign, token.CaretAssign, token.AmpAssign, token.PipeAssign,
		token.ShlAssign, token.ShrAssign:
		return true
	}
	return false
}

// canStartExpr reports whether a token may begin an expression.
func canStartExpr(k token.Kind) bool {
	switch k {
	case token.IntLit, token.FloatLit, token.StringLit, token.CharLit, token.KwTrue, token.KwFalse,
		token.Ident, token.Lifetime, token.KwSelfValue, token.KwSelfType, token.KwSuper, token.KwCrate,
		token.KwIf, token.KwMatch, token.KwLoop, token.KwWhile, token.KwFor, token.KwUnsafe,
		token.KwMove, token.KwReturn, token.KwBreak, token.KwContinue, token.KwLet, token.KwAsync,
		token.LParen, token.LBracket, token.LBrace, token.Pipe, token.OrOr,
		token.Bang, token.Minus, token.Star, token.Amp, token.AndAnd,
		token.DotDot, token.DotDotEq, token.ColonColon, token.Lt, token.Shl, token.Pound, token.Underscore:
		return true
	}
	return false
}

// canContinueWithValue reports whether return/break/range may take an operand here.
func (p *Parser) canContinueWithValue() bool {
	if p.at(token.LBrace) && p.noStruct {
		return false
	}
	return canStartExpr(p.peek().Kind)
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

func (p *Parser) exprAllowStruct() ast.Expr {
	old := p.noStruct
	p.noStruct = false
	e := p.parseExpr()
	p.noStruct = old
	return e
}

func (p *Parser) exprNoStruct() ast.Expr {
	old := p.noStruct
	p.noStruct = true
	e := p.parseExpr()
	p.noStruct = old
	return e
}

// parseExprRest continues an already parsed operand through the binary,
// range and assignment levels.
func (p *Parser) parseExprRest(left ast.Expr) ast.Expr {
	return p.parseAssignRest(p.parseRangeRest(p.parseBinaryRest(left, precNone)))
}

func (p *Parser) parseAssign() ast.Expr {
	return p.parseAssignRest(p.parseRange())
}

func (p *Parser) parseAssignRest(lhs ast.Expr) ast.Expr {
	if !isAssignOp(p.peek().Kind) {
		return lhs
	}
	op := p.advance().Kind
	rhs := p.parseAssign()
	return &ast.AssignExpr{Sp: p.spanFrom(lhs.Span()), Op: op, X: lhs, Y: rhs}
}

func (p *Parser) parseRange() ast.Expr {
	if p.atAny(token.DotDot, token.DotDotEq) {
		start := p.peek().Span
		r := &ast.RangeExpr{Inclusive: p.advance().Kind == token.DotDotEq}
		if p.canContinueWithValue() {
			r.Hi = p.parseBinary(precNone)
		}
		r.Sp = p.spanFrom(start)
		return r
	}
	return p.parseRangeRest(p.parseBinary(precNone))
}

func (p *Parser) parseRangeRest(lo ast.Expr) ast.Expr {
	if !p.atAny(token.DotDot, token.DotDotEq) {
		return lo
	}
	r := &ast.RangeExpr{Lo: lo, Inclusive: p.advance().Kind == token.DotDotEq}
	if p.canContinueWithValue() {
		r.Hi = p.parseBinary(precNone)
	}
	r.Sp = p.spanFrom(lo.Span())
	return r
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	return p.parseBinaryRest(p.parseUnary(), minPrec)
}

func (p *Parser) parseBinaryRest(left ast.Expr, minPrec int) ast.Expr {
	for {
		if p.at(token.KwAs) && precCast > minPrec {
			p.advance()
			ty := p.parseType()
			left = &ast.CastExpr{Sp: p.spanFrom(left.Span()), X: left, Type: ty}
			continue
		}
		op := p.peek().Kind
		prec := binaryPrec(op)
		if prec == precNone || prec <= minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec)
		left = &ast.BinaryExpr{Sp: p.spanFrom(left.Span()), Op: op, X: left, Y: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.peek().Span
	switch p.peek().Kind {
	case token.Minus, token.Bang, token.Star:
		op := p.advance().Kind
		x := p.parseUnary()
		return &ast.UnaryExpr{Sp: p.spanFrom(start), Op: op, X: x}
	case token.Amp, token.AndAnd:
		p.eatAmp()
		mut := p.eat(token.KwMut)
		x := p.parseUnary()
		return &ast.RefExpr{Sp: p.spanFrom(start), Mut: mut, X: x}
	case token.Pound:
		if p.peekN(1).Kind == token.LBracket {
			p.parseOuterAttrs()
			return p.parseUnary()
		}
	}
	return p.parsePostfix(p.parsePrimary())
}

// parsePostfix applies ?, .field, .method(), .await, (args) and [index].
func (p *Parser) parsePostfix(e ast.Expr) ast.Expr {
	for {
		start := e.Span()
		switch p.peek().Kind {
		case token.Question:
			p.advance()
			e = &ast.TryExpr{Sp: p.spanFrom(start), X: e}
		case token.Dot:
			p.advance()
			tok := p.peek()
			switch tok.Kind {
			case token.KwAwait:
				p.advance()
				e = &ast.AwaitExpr{Sp: p.spanFrom(start), X: e}
			case token.Ident, token.IntLit:
				p.advance()
				name := ast.Ident{Name: tok.Text, Sp: tok.Span}
				var turbofish []*ast.GenericArg
				if p.at(token.ColonColon) && p.peekN(1).Kind == token.Lt {
					p.advance()
					turbofish = p.parseGenericArgs()
				}
				if p.at(token.LParen) {
					args, argsSp := p.parseCallArgs()
					e = &ast.MethodCallExpr{Sp: p.spanFrom(start), Receiver: e, Method: name, Turbofish: turbofish, Args: args, ArgsSp: argsSp}
				} else {
					e = &ast.FieldExpr{Sp: p.spanFrom(start), X: e, Field: name}
				}
			default:
				p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected field or method name after `.`, found "+describe(tok))
				return &ast.FieldExpr{Sp: p.spanFrom(start), X: e, Field: ast.Ident{Sp: p.emptySpan()}}
			}
		case token.LParen:
			args, argsSp := p.parseCallArgs()
			e = &ast.CallExpr{Sp: p.spanFrom(start), Fun: e, Args: args, ArgsSp: argsSp}
		case token.LBracket:
			p.advance()
			idx := p.exprAllowStruct()
			p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected `]` to close index, found "+describe(p.peek()))
			e = &ast.IndexExpr{Sp: p.spanFrom(start), X: e, Index: idx}
		default:
			return e
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.Expr, source.Span) {
	start := p.advance().Span // (
	var args []ast.Expr
	for !p.atAny(token.RParen, token.EOF) {
		before := p.pos
		args = append(args, p.exprAllowStruct())
		if !p.eat(token.Comma) {
			break
		}
		if p.pos == before {
			p.advance()
		}
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected `,` or `)` in argument list, found "+describe(p.peek())); !ok {
		p.resyncUntil(token.RParen)
	}
	return args, p.spanFrom(start)
}

// atBlockLikeStart reports whether an expression statement starting here
// ends at its closing brace.
func (p *Parser) atBlockLikeStart() bool {
	switch p.peek().Kind {
	case token.LBrace, token.KwIf, token.KwMatch, token.KwLoop, token.KwWhile, token.KwFor:
		return true
	case token.KwUnsafe, token.KwConst:
		return p.peekN(1).Kind == token.LBrace
	case token.KwAsync:
		return p.peekN(1).Kind == token.LBrace || (p.peekN(1).Kind == token.KwMove && p.peekN(2).Kind == token.LBrace)
	case token.Lifetime:
		return p.peekN(1).Kind == token.Colon
	}
	return false
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()
	start := tok.Span
	switch tok.Kind {
	case token.IntLit, token.FloatLit, token.StringLit, token.CharLit, token.KwTrue, token.KwFalse:
		return p.parseLit()
	case token.Ident, token.KwSelfValue, token.KwSelfType, token.KwSuper, token.KwCrate,
		token.ColonColon, token.Lt, token.Shl:
		return p.parsePathStart()
	case token.LParen:
		return p.parseParenOrTuple()
	case token.LBracket:
		return p.parseArray()
	case token.LBrace:
		return p.parseBlock()
	case token.KwUnsafe, token.KwConst:
		if p.peekN(1).Kind == token.LBrace {
			p.advance()
			b := p.parseBlock()
			b.Unsafe = tok.Kind == token.KwUnsafe
			b.Sp = p.spanFrom(start)
			return b
		}
	case token.KwAsync:
		if p.peekN(1).Kind == token.LBrace || (p.peekN(1).Kind == token.KwMove && p.peekN(2).Kind == token.LBrace) {
			p.advance()
			move := p.eat(token.KwMove)
			b := p.parseBlock()
			b.Async, b.Move = true, move
			b.Sp = p.spanFrom(start)
			return b
		}
		return p.parseClosure()
	case token.KwMove, token.Pipe, token.OrOr:
		return p.parseClosure()
	case token.KwIf:
		return p.parseIf()
	case token.KwMatch:
		return p.parseMatch()
	case token.KwLoop, token.KwWhile, token.KwFor:
		return p.parseLoop("", start)
	case token.Lifetime:
		if p.peekN(1).Kind == token.Colon {
			return p.parseLabeled()
		}
	case token.KwReturn:
		p.advance()
		r := &ast.ReturnExpr{}
		if p.canContinueWithValue() {
			r.X = p.parseExpr()
		}
		r.Sp = p.spanFrom(start)
		return r
	case token.KwBreak:
		p.advance()
		b := &ast.BreakExpr{}
		if p.at(token.Lifetime) {
			b.Label = p.advance().Text
		}
		if p.canContinueWithValue() {
			b.X = p.parseExpr()
		}
		b.Sp = p.spanFrom(start)
		return b
	case token.KwContinue:
		p.advance()
		c := &ast.ContinueExpr{}
		if p.at(token.Lifetime) {
			c.Label = p.advance().Text
		}
		c.Sp = p.spanFrom(start)
		return c
	case token.KwLet:
		p.advance()
		pat := p.parsePattern()
		le := &ast.LetExpr{Pat: pat}
		if _, ok := p.expect(token.Assign, diag.SynUnexpectedToken, "expected `=` in let condition, found "+describe(p.peek())); ok {
			// сравнение и всё, что сильнее &&, относится к scrutinee
			le.X = p.parseBinary(precAndAnd)
		} else {
			le.X = &ast.BadExpr{Sp: p.emptySpan()}
		}
		le.Sp = p.spanFrom(start)
		return le
	case token.Underscore:
		p.advance()
		return &ast.UnderscoreExpr{Sp: tok.Span}
	}
	p.err(diag.SynExpectExpression, p.diagSpan(), "expected expression, found "+describe(tok))
	if !p.at(token.EOF) && !tok.IsCloseDelim() && !p.atAny(token.Semicolon, token.Comma, token.FatArrow) {
		p.advance()
	}
	return &ast.BadExpr{Sp: p.spanFrom(start)}
}

// parsePathStart parses a path expression, a macro call or a struct literal.
func (p *Parser) parsePathStart() ast.Expr {
	start := p.peek().Span
	path := p.parsePathExpr()
	if p.at(token.Bang) && p.peekN(1).IsOpenDelim() {
		return p.parseMacroCall(path, start)
	}
	if p.at(token.LBrace) && !p.noStruct && p.structLiteralAhead() {
		return p.parseStructLit(path, start)
	}
	return &ast.PathExpr{Sp: path.Sp, Path: path}
}

// structLiteralAhead смотрит за `{`: литерал структуры начинается с `}`,
// `name:`, `name,`, `name}`, `..`, `0:` или атрибута поля.
func (p *Parser) structLiteralAhead() bool {
	next := p.peekN(1)
	switch next.Kind {
	case token.RBrace, token.DotDot, token.Pound:
		return true
	case token.Ident:
		k := p.peekN(2).Kind
		return k == token.Colon || k == token.Comma || k == token.RBrace
	case token.IntLit:
		return p.peekN(2).Kind == token.Colon
	}
	return false
}

func (p *Parser) parseStructLit(path *ast.Path, start source.Span) ast.Expr {
	braceStart := p.advance().Span // {
	se := &ast.StructExpr{Path: path}
	old := p.noStruct
	p.noStruct = false
	for !p.atAny(token.RBrace, token.EOF) {
		before := p.pos
		p.parseOuterAttrs()
		if p.eat(token.DotDot) {
			if !p.at(token.RBrace) {
				se.Base = p.parseExpr()
			}
			break
		}
		fstart := p.peek().Span
		tok := p.peek()
		if tok.Kind != token.Ident && tok.Kind != token.IntLit {
			p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected field name, found "+describe(tok))
			p.resyncField()
			if p.pos == before {
				p.advance()
			}
			continue
		}
		p.advance()
		fi := &ast.FieldInit{Name: ast.Ident{Name: tok.Text, Sp: tok.Span}}
		if p.eat(token.Colon) {
			fi.Value = p.parseExpr()
		} else {
			fi.Shorthand = true
			fi.Value = &ast.PathExpr{Sp: tok.Span, Path: singlePath(tok)}
		}
		fi.Sp = p.spanFrom(fstart)
		se.Fields = append(se.Fields, fi)
		if !p.eat(token.Comma) {
			break
		}
	}
	p.noStruct = old
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `,` or `}` in struct literal, found "+describe(p.peek()))
	se.BraceSp = p.spanFrom(braceStart)
	se.Sp = p.spanFrom(start)
	return se
}

func (p *Parser) parseParenOrTuple() ast.Expr {
	start := p.advance().Span // (
	old := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = old }()
	if p.eat(token.RParen) {
		return &ast.TupleExpr{Sp: p.spanFrom(start)}
	}
	first := p.parseExpr()
	if !p.at(token.Comma) {
		p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected `)`, found "+describe(p.peek()))
		return &ast.ParenExpr{Sp: p.spanFrom(start), X: first}
	}
	elems := []ast.Expr{first}
	for p.eat(token.Comma) && !p.atAny(token.RParen, token.EOF) {
		elems = append(elems, p.parseExpr())
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected `,` or `)` in tuple, found "+describe(p.peek()))
	return &ast.TupleExpr{Sp: p.spanFrom(start), Elems: elems}
}

func (p *Parser) parseArray() ast.Expr {
	start := p.advance().Span // [
	old := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = old }()
	arr := &ast.ArrayExpr{}
	if !p.at(token.RBracket) {
		arr.Elems = append(arr.Elems, p.parseExpr())
		if p.eat(token.Semicolon) {
			arr.Repeat = p.parseExpr()
		} else {
			for p.eat(token.Comma) && !p.atAny(token.RBracket, token.EOF) {
				arr.Elems = append(arr.Elems, p.parseExpr())
			}
		}
	}
	p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected `,` or `]` in array, found "+describe(p.peek()))
	arr.Sp = p.spanFrom(start)
	return arr
}

// parseBlock parses { stmts }. A missing `{` is reported and an empty block returned.
func (p *Parser) parseBlock() *ast.BlockExpr {
	start := p.peek().Span
	if _, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected `{`, found "+describe(p.peek())); !ok {
		return &ast.BlockExpr{Sp: p.emptySpan()}
	}
	old := p.noStruct
	p.noStruct = false
	p.parseInnerAttrs()
	b := &ast.BlockExpr{Stmts: p.parseStmtList(token.RBrace)}
	p.noStruct = old
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `}`, found "+describe(p.peek()))
	b.Sp = p.spanFrom(start)
	return b
}

func (p *Parser) parseClosure() ast.Expr {
	start := p.peek().Span
	c := &ast.ClosureExpr{}
	c.Async = p.eat(token.KwAsync)
	c.Move = p.eat(token.KwMove)
	switch {
	case p.eat(token.OrOr):
	case p.eat(token.Pipe):
		for !p.atAny(token.Pipe, token.EOF) {
			before := p.pos
			pstart := p.peek().Span
			p.parseOuterAttrs()
			param := &ast.Param{Pat: p.parsePatternNoTopAlt()}
			if p.eat(token.Colon) {
				param.Type = p.parseType()
			}
			param.Sp = p.spanFrom(pstart)
			c.Params = append(c.Params, param)
			if !p.eat(token.Comma) {
				break
			}
			if p.pos == before {
				p.advance()
			}
		}
		if !p.eatPipe() {
			p.err(diag.SynUnclosedDelimiter, p.diagSpan(), "expected `|` to close closure parameters, found "+describe(p.peek()))
		}
	default:
		p.err(diag.SynUnexpectedToken, p.diagSpan(), "expected closure parameters, found "+describe(p.peek()))
	}
	if p.eat(token.Arrow) {
		c.Ret = p.parseType()
		c.Body = p.parseBlock()
	} else {
		c.Body = p.parseExpr()
	}
	c.Sp = p.spanFrom(start)
	return c
}

func (p *Parser) parseIf() ast.Expr {
	start := p.advance().Span // if
	ie := &ast.IfExpr{Cond: p.exprNoStruct()}
	ie.Then = p.parseBlock()
	if p.eat(token.KwElse) {
		if p.at(token.KwIf) {
			ie.Else = p.parseIf()
		} else {
			ie.Else = p.parseBlock()
		}
	}
	ie.Sp = p.spanFrom(start)
	return ie
}

func (p *Parser) parseLabeled() ast.Expr {
	start := p.peek().Span
	label := p.advance().Text
	p.advance() // :
	switch p.peek().Kind {
	case token.KwLoop, token.KwWhile, token.KwFor:
		return p.parseLoop(label, start)
	case token.LBrace:
		b := p.parseBlock()
		b.Label = label
		b.Sp = p.spanFrom(start)
		return b
	}
	p.err(diag.SynUnexpectedToken, p.diagSpan(), "expected loop or block after label, found "+describe(p.peek()))
	return &ast.BadExpr{Sp: p.spanFrom(start)}
}

func (p *Parser) parseLoop(label string, start source.Span) ast.Expr {
	switch p.advance().Kind {
	case token.KwLoop:
		body := p.parseBlock()
		return &ast.LoopExpr{Sp: p.spanFrom(start), Label: label, Body: body}
	case token.KwWhile:
		cond := p.exprNoStruct()
		body := p.parseBlock()
		return &ast.WhileExpr{Sp: p.spanFrom(start), Label: label, Cond: cond, Body: body}
	default: // for
		fe := &ast.ForExpr{Label: label, Pat: p.parsePattern()}
		if _, ok := p.expect(token.KwIn, diag.SynUnexpectedToken, "expected `in` in for loop, found "+describe(p.peek())); ok {
			fe.Iter = p.exprNoStruct()
		} else {
			fe.Iter = &ast.BadExpr{Sp: p.emptySpan()}
		}
		fe.Body = p.parseBlock()
		fe.Sp = p.spanFrom(start)
		return fe
	}
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.advance().Span // match
	me := &ast.MatchExpr{X: p.exprNoStruct()}
	if _, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected `{` after match scrutinee, found "+describe(p.peek())); !ok {
		me.Sp = p.spanFrom(start)
		return me
	}
	old := p.noStruct
	p.noStruct = false
	for !p.atAny(token.RBrace, token.EOF) {
		before := p.pos
		astart := p.peek().Span
		p.parseOuterAttrs()
		arm := &ast.MatchArm{Pat: p.parsePattern()}
		if p.eat(token.KwIf) {
			arm.Guard = p.parseExpr()
		}
		if _, ok := p.expect(token.FatArrow, diag.SynUnexpectedToken, "expected `=>` in match arm, found "+describe(p.peek())); !ok {
			p.resyncArm()
			if p.pos == before {
				p.advance()
			}
			continue
		}
		if p.atBlockLikeStart() {
			arm.Body = p.parsePrimary()
		} else {
			arm.Body = p.parseExpr()
		}
		arm.Sp = p.spanFrom(astart)
		me.Arms = append(me.Arms, arm)
		if ast.IsBlockLike(arm.Body) {
			p.eat(token.Comma)
			continue
		}
		if !p.eat(token.Comma) && !p.at(token.RBrace) {
			p.err(diag.SynUnexpectedToken, p.diagSpan(), "expected `,` after match arm, found "+describe(p.peek()))
			p.resyncArm()
		}
	}
	p.noStruct = old
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `}` to close match, found "+describe(p.peek()))
	me.Sp = p.spanFrom(start)
	return me
}

// resyncArm skips to the next `,` or the closing `}` of the match.
func (p *Parser) resyncArm() {
	for !p.atAny(token.RBrace, token.EOF) {
		if p.peek().IsOpenDelim() {
			p.skipTokenTree()
			continue
		}
		if p.eat(token.Comma) {
			return
		}
		p.advance()
	}
}
