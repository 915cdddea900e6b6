package lexer

import (
	"rectify/internal/source"
	"rectify/internal/token"
)

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token   // 1 элементный буфер для токена
	hold   []token.Trivia // накопленные leading trivia
	last   token.Kind     // kind of the previously emitted token
}

func New(file *source.File, opts Options) *Lexer {
	lx := &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
		last:   token.Invalid,
	}
	if source.HasBOM(file.Content) {
		lx.cursor.Off = 3
	}
	lx.skipShebang()
	return lx
}

// Tokenize lexes the whole file, including the trailing EOF token.
func Tokenize(file *source.File, opts Options) []token.Token {
	lx := New(file, opts)
	out := make([]token.Token, 0, len(file.Content)/4+1)
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// Next возвращает следующий **значимый** токен с уже собранным Leading.
// После EOF всегда возвращает EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}

	lx.collectLeadingTrivia()

	if lx.cursor.EOF() {
		return token.Token{
			Kind:    token.EOF,
			Span:    lx.emptySpan(),
			Leading: lx.takeHold(),
		}
	}

	ch := lx.cursor.Peek()
	var tok token.Token

	switch {
	case ch == 'r' && lx.cursor.PeekAt(1) == '#' && isIdentStartByte(lx.cursor.PeekAt(2)):
		// r#ident: сырой идентификатор
		tok = lx.scanRawIdent()

	case (ch == 'r' || ch == 'b') && lx.isStringPrefix():
		tok = lx.scanPrefixedLiteral()

	case isIdentStartByte(ch) || ch >= utf8RuneSelf:
		tok = lx.scanIdentOrKeyword()

	case isDec(ch):
		tok = lx.scanNumber()

	case ch == '"':
		tok = lx.scanString(lx.cursor.Mark())

	case ch == '\'':
		tok = lx.scanCharOrLifetime()

	default:
		tok = lx.scanOperatorOrPunct()
	}

	tok.Leading = lx.takeHold()
	lx.last = tok.Kind
	return tok
}

// Peek возвращает следующий токен, не потребляя его.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

func (lx *Lexer) takeHold() []token.Trivia {
	if len(lx.hold) == 0 {
		return nil
	}
	out := make([]token.Trivia, len(lx.hold))
	copy(out, lx.hold)
	lx.hold = lx.hold[:0]
	return out
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) emit(kind token.Kind, start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}

// skipShebang пропускает "#!" в первой строке, но не внутренний атрибут "#![".
func (lx *Lexer) skipShebang() {
	if lx.cursor.Peek() != '#' || lx.cursor.PeekAt(1) != '!' || lx.cursor.PeekAt(2) == '[' {
		return
	}
	for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
		lx.cursor.Bump()
	}
}
