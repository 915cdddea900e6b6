package parser

import (
	"fmt"

	"rectify/internal/diag"
	"rectify/internal/source"
	"rectify/internal/token"
)

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

// peekN смотрит на n токенов вперёд; за концом всегда EOF.
func (p *Parser) peekN(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool {
	return p.toks[p.pos].Kind == k
}

func (p *Parser) atAny(kinds ...token.Kind) bool {
	cur := p.toks[p.pos].Kind
	for _, k := range kinds {
		if cur == k {
			return true
		}
	}
	return false
}

// atIdent checks for a contextual keyword such as union or macro_rules.
func (p *Parser) atIdent(name string) bool {
	tok := p.peek()
	return tok.Kind == token.Ident && tok.Text == name
}

// advance consumes the current token. EOF is never consumed.
func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
	}
	p.lastSpan = tok.Span
	return tok
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// expect ожидает конкретный токен. Если его нет, репортим и не двигаемся.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	tok := p.peek()
	if msg == "" {
		msg = fmt.Sprintf("expected %s, found %s", k, describe(tok))
	}
	p.err(code, p.diagSpan(), msg)
	return tok, false
}

func (p *Parser) expectIdent() (token.Token, bool) {
	if p.at(token.Ident) {
		return p.advance(), true
	}
	p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected identifier, found "+describe(p.peek()))
	return token.Token{Kind: token.Invalid, Span: p.emptySpan()}, false
}

// diagSpan: на EOF указываем сразу после последнего токена, иначе на текущий.
func (p *Parser) diagSpan() source.Span {
	tok := p.peek()
	if tok.Kind == token.EOF {
		sp := p.lastSpan
		sp.Start = sp.End
		return sp
	}
	return tok.Span
}

func (p *Parser) emptySpan() source.Span {
	sp := p.peek().Span
	sp.End = sp.Start
	return sp
}

// spanFrom covers from the start span up to the last consumed token.
func (p *Parser) spanFrom(start source.Span) source.Span {
	if p.lastSpan.End < start.Start {
		return source.Span{File: start.File, Start: start.Start, End: start.Start}
	}
	return source.Span{File: start.File, Start: start.Start, End: p.lastSpan.End}
}

func (p *Parser) err(code diag.Code, sp source.Span, msg string) {
	p.report(code, diag.SevError, sp, msg)
}

func (p *Parser) report(code diag.Code, sev diag.Severity, sp source.Span, msg string) {
	if sev >= diag.SevError {
		if p.opts.Enough() {
			return
		}
		p.opts.CurrentErrors++
	}
	if p.opts.Reporter != nil {
		p.opts.Reporter.Report(code, sev, sp, msg)
	}
	if sev >= diag.SevError && p.opts.Enough() && p.opts.Reporter != nil {
		p.opts.Reporter.Report(diag.SynTooManyErrors, diag.SevError, sp, "too many errors, further errors suppressed")
	}
}

// splitFirst consumes the first character of a compound token and leaves
// the remainder (of kind rest) in place: `>>` becomes `>` + `>`.
func (p *Parser) splitFirst(rest token.Kind) {
	tok := &p.toks[p.pos]
	first := tok.Span
	first.End = first.Start + 1
	p.lastSpan = first
	tok.Span.Start++
	tok.Kind = rest
	if len(tok.Text) > 0 {
		tok.Text = tok.Text[1:]
	}
	tok.Leading = nil
}

func (p *Parser) atGt() bool {
	return p.atAny(token.Gt, token.Shr, token.GtEq, token.ShrAssign)
}

// eatGt consumes a single `>`, splitting `>>`, `>=` and `>>=`.
func (p *Parser) eatGt() bool {
	switch p.peek().Kind {
	case token.Gt:
		p.advance()
	case token.Shr:
		p.splitFirst(token.Gt)
	case token.GtEq:
		p.splitFirst(token.Assign)
	case token.ShrAssign:
		p.splitFirst(token.GtEq)
	default:
		return false
	}
	return true
}

// eatLt consumes a single `<`, splitting `<<` and `<=`.
func (p *Parser) eatLt() bool {
	switch p.peek().Kind {
	case token.Lt:
		p.advance()
	case token.Shl:
		p.splitFirst(token.Lt)
	case token.LtEq:
		p.splitFirst(token.Assign)
	case token.ShlAssign:
		p.splitFirst(token.LtEq)
	default:
		return false
	}
	return true
}

// eatAmp consumes a single `&`, splitting `&&`.
func (p *Parser) eatAmp() bool {
	switch p.peek().Kind {
	case token.Amp:
		p.advance()
	case token.AndAnd:
		p.splitFirst(token.Amp)
	default:
		return false
	}
	return true
}

// eatPipe consumes a single `|`, splitting `||`.
func (p *Parser) eatPipe() bool {
	switch p.peek().Kind {
	case token.Pipe:
		p.advance()
	case token.OrOr:
		p.splitFirst(token.Pipe)
	default:
		return false
	}
	return true
}

// skipTokenTree consumes a balanced delimited group starting at the current
// open delimiter and returns the indices of the open and close tokens.
// closeIdx is -1 when the group is not terminated.
func (p *Parser) skipTokenTree() (openIdx, closeIdx int) {
	openIdx = p.pos
	openTok := p.advance()
	stack := []token.Kind{closerOf(openTok.Kind)}
	for len(stack) > 0 {
		tok := p.peek()
		switch {
		case tok.Kind == token.EOF:
			p.err(diag.SynUnclosedDelimiter, openTok.Span, "unclosed delimiter "+openTok.Kind.String())
			return openIdx, -1
		case tok.IsOpenDelim():
			stack = append(stack, closerOf(tok.Kind))
		case tok.IsCloseDelim():
			if tok.Kind != stack[len(stack)-1] {
				p.err(diag.SynUnexpectedToken, tok.Span, "mismatched closing delimiter "+tok.Kind.String())
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				closeIdx = p.pos
				p.advance()
				return openIdx, closeIdx
			}
		}
		p.advance()
	}
	return openIdx, -1
}

func closerOf(k token.Kind) token.Kind {
	switch k {
	case token.LParen:
		return token.RParen
	case token.LBracket:
		return token.RBracket
	default:
		return token.RBrace
	}
}

// textBetween returns the source text strictly between two token indices.
func (p *Parser) textBetween(openIdx, closeIdx int) string {
	if p.file == nil || closeIdx < 0 || closeIdx <= openIdx {
		return ""
	}
	sp := source.Span{
		File:  p.toks[openIdx].Span.File,
		Start: p.toks[openIdx].Span.End,
		End:   p.toks[closeIdx].Span.Start,
	}
	return p.file.Text(sp)
}

// resyncItems пропускает токены до начала следующего item или до `;`/`}`
// на нулевой глубине. Всегда продвигается хотя бы на один токен.
func (p *Parser) resyncItems(stop token.Kind) {
	start := p.pos
	depth := 0
	for !p.at(token.EOF) {
		tok := p.peek()
		if depth == 0 && p.pos > start {
			if tok.Kind == stop || p.atItemStart() {
				return
			}
		}
		switch {
		case tok.IsOpenDelim():
			depth++
		case tok.IsCloseDelim():
			if depth == 0 {
				if tok.Kind == stop {
					return
				}
			} else {
				depth--
			}
		case tok.Kind == token.Semicolon && depth == 0:
			p.advance()
			return
		}
		p.advance()
	}
}

// resyncStmt skips to the end of the current statement.
func (p *Parser) resyncStmt(stop token.Kind) {
	depth := 0
	moved := false
	for !p.at(token.EOF) {
		tok := p.peek()
		switch {
		case tok.IsOpenDelim():
			depth++
		case tok.IsCloseDelim():
			if depth == 0 {
				if !moved && tok.Kind != stop {
					p.advance()
				}
				return
			}
			depth--
		case tok.Kind == token.Semicolon && depth == 0:
			p.advance()
			return
		}
		p.advance()
		moved = true
	}
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of input"
	case token.Ident, token.IntLit, token.FloatLit, token.StringLit, token.CharLit, token.Lifetime:
		return fmt.Sprintf("%s %q", tok.Kind, tok.Text)
	default:
		return fmt.Sprintf("%q", tok.Text)
	}
}
