package lexer

import (
	"rectify/internal/diag"
	"rectify/internal/token"
)

// isStringPrefix распознаёт b"..", b'..', r"..", r#"..", br"..", br#"..".
func (lx *Lexer) isStringPrefix() bool {
	b0 := lx.cursor.Peek()
	b1 := lx.cursor.PeekAt(1)
	switch b0 {
	case 'b':
		if b1 == '"' || b1 == '\'' {
			return true
		}
		if b1 == 'r' {
			b2 := lx.cursor.PeekAt(2)
			return b2 == '"' || b2 == '#'
		}
	case 'r':
		if b1 == '"' {
			return true
		}
		if b1 == '#' {
			// r#"..." но не r#ident
			n := uint32(1)
			for lx.cursor.PeekAt(n) == '#' {
				n++
			}
			return lx.cursor.PeekAt(n) == '"'
		}
	}
	return false
}

func (lx *Lexer) scanPrefixedLiteral() token.Token {
	start := lx.cursor.Mark()
	if lx.cursor.Eat('b') {
		switch lx.cursor.Peek() {
		case '"':
			return lx.scanString(start)
		case '\'':
			return lx.scanChar(start)
		}
	}
	// r / br
	lx.cursor.Eat('r')
	return lx.scanRawString(start)
}

// scanString: "..." с escape-последовательностями; переводы строк внутри допустимы.
func (lx *Lexer) scanString(start Mark) token.Token {
	lx.cursor.Bump() // opening '"'
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case '"':
			lx.cursor.Bump()
			lx.scanSuffix()
			return lx.emit(token.StringLit, start)
		case '\\':
			lx.cursor.Bump()
			lx.cursor.Bump()
		default:
			lx.cursor.Bump()
		}
	}
	tok := lx.emit(token.Invalid, start)
	lx.errLex(diag.LexUnterminatedString, tok.Span, "unterminated string literal")
	return tok
}

// scanRawString: курсор стоит на первом '#' или '"' после префикса r.
func (lx *Lexer) scanRawString(start Mark) token.Token {
	hashes := 0
	for lx.cursor.Eat('#') {
		hashes++
	}
	if !lx.cursor.Eat('"') {
		tok := lx.emit(token.Invalid, start)
		lx.errLex(diag.LexBadRawString, tok.Span, "expected '\"' in raw string")
		return tok
	}
	for !lx.cursor.EOF() {
		if lx.cursor.Bump() != '"' {
			continue
		}
		n := 0
		for n < hashes && lx.cursor.Peek() == '#' {
			lx.cursor.Bump()
			n++
		}
		if n == hashes {
			return lx.emit(token.StringLit, start)
		}
	}
	tok := lx.emit(token.Invalid, start)
	lx.errLex(diag.LexUnterminatedString, tok.Span, "unterminated raw string")
	return tok
}

// scanCharOrLifetime различает 'a' (char), '\n' (char) и 'a / 'static (lifetime или метка).
func (lx *Lexer) scanCharOrLifetime() token.Token {
	start := lx.cursor.Mark()
	b1 := lx.cursor.PeekAt(1)
	if b1 == '\\' {
		return lx.scanChar(start)
	}
	// 'x': одиночный символ, включая многобайтовый
	lx.cursor.Bump()
	r, sz := lx.peekRune()
	if sz > 0 && lx.cursor.PeekAhead(sz) == '\'' {
		lx.cursor.BumpN(sz + 1)
		return lx.emit(token.CharLit, start)
	}
	if sz > 0 && isIdentStartRune(r) {
		lx.bumpRune()
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		return lx.emit(token.Lifetime, start)
	}
	lx.cursor.Reset(start)
	return lx.scanChar(start)
}

// scanChar: курсор на открывающей '.
func (lx *Lexer) scanChar(start Mark) token.Token {
	lx.cursor.Bump() // '
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case '\'':
			lx.cursor.Bump()
			return lx.emit(token.CharLit, start)
		case '\\':
			lx.cursor.BumpN(2)
		case '\n':
			tok := lx.emit(token.Invalid, start)
			lx.errLex(diag.LexUnterminatedChar, tok.Span, "unterminated character literal")
			return tok
		default:
			lx.cursor.Bump()
		}
	}
	tok := lx.emit(token.Invalid, start)
	lx.errLex(diag.LexUnterminatedChar, tok.Span, "unterminated character literal")
	return tok
}
