package lexer

import (
	"rectify/internal/diag"
	"rectify/internal/token"
)

// Поддержка: 0, 1_000, 0b..., 0o..., 0x..., 1.0, 1e-3, 2.5E+10f64 и суффиксов (u8, i64, f32, usize...).
// Суффикс остаётся в Token.Text. После '.' (индекс кортежа: t.0.1) точка в число не входит.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if lx.cursor.Peek() == '0' {
		switch lx.cursor.PeekAt(1) {
		case 'b', 'o', 'x':
			base := lx.cursor.PeekAt(1)
			lx.cursor.BumpN(2)
			digits := 0
			for {
				b := lx.cursor.Peek()
				if b == '_' || digitInBase(b, base) {
					if b != '_' {
						digits++
					}
					lx.cursor.Bump()
					continue
				}
				break
			}
			if digits == 0 {
				lx.errLex(diag.LexBadNumber, lx.cursor.SpanFrom(start), "missing digits after integer base prefix")
			}
			lx.scanSuffix()
			return lx.emit(kind, start)
		}
	}

	lx.scanDecDigits()

	// дробная часть: "1.5", но не "1..2", не "1.foo()" и не "t.0.1"
	if lx.cursor.Peek() == '.' && lx.last != token.Dot {
		next := lx.cursor.PeekAt(1)
		if isDec(next) {
			kind = token.FloatLit
			lx.cursor.Bump()
			lx.scanDecDigits()
		} else if next != '.' && !isIdentStartByte(next) && next < utf8RuneSelf {
			// "1.": допустимый float
			kind = token.FloatLit
			lx.cursor.Bump()
			return lx.emit(kind, start)
		}
	}

	// экспонента
	if b := lx.cursor.Peek(); (b == 'e' || b == 'E') && lx.last != token.Dot {
		save := lx.cursor.Mark()
		lx.cursor.Bump()
		if s := lx.cursor.Peek(); s == '+' || s == '-' {
			lx.cursor.Bump()
		}
		if !isDec(lx.cursor.Peek()) {
			// это суффикс/идентификатор, а не экспонента
			lx.cursor.Reset(save)
		} else {
			kind = token.FloatLit
			lx.scanDecDigits()
		}
	}

	if lx.scanSuffix() == 'f' {
		kind = token.FloatLit
	}
	return lx.emit(kind, start)
}

func (lx *Lexer) scanDecDigits() {
	for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		lx.cursor.Bump()
	}
}

// scanSuffix consumes an identifier-like literal suffix and returns its first byte.
func (lx *Lexer) scanSuffix() byte {
	first := lx.cursor.Peek()
	if !isIdentStartByte(first) {
		return 0
	}
	for isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	return first
}

func digitInBase(b, base byte) bool {
	switch base {
	case 'b':
		return b == '0' || b == '1'
	case 'o':
		return b >= '0' && b <= '7'
	default:
		return isHex(b)
	}
}
