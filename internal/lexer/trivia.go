package lexer

import (
	"rectify/internal/diag"
	"rectify/internal/token"
)

// collectLeadingTrivia собирает подряд идущие trivia перед значимым токеном.
// - ' ', '\t', '\r' коалесцируются в один TriviaSpace
// - последовательные '\n' коалесцируются в один TriviaNewline
// - //... до \n -> TriviaLineComment, ///... и //!... -> TriviaDocLine
// - /* ... */ -> TriviaBlockComment (с вложенностью), /** */ и /*! */ -> TriviaDocBlock
func (lx *Lexer) collectLeadingTrivia() {
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		b := lx.cursor.Peek()

		if b == ' ' || b == '\t' || b == '\r' {
			for {
				b2 := lx.cursor.Peek()
				if b2 != ' ' && b2 != '\t' && b2 != '\r' {
					break
				}
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaSpace, start)
			continue
		}

		if b == '\n' {
			for lx.cursor.Peek() == '\n' {
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaNewline, start)
			continue
		}

		if b == '/' && lx.scanComment() {
			continue
		}
		break
	}
}

func (lx *Lexer) pushTrivia(kind token.TriviaKind, start Mark) {
	sp := lx.cursor.SpanFrom(start)
	lx.hold = append(lx.hold, token.Trivia{
		Kind: kind,
		Span: sp,
		Text: string(lx.file.Content[sp.Start:sp.End]),
	})
}

func (lx *Lexer) scanComment() bool {
	start := lx.cursor.Mark()
	switch lx.cursor.PeekAt(1) {
	case '/':
		kind := token.TriviaLineComment
		third, fourth := lx.cursor.PeekAt(2), lx.cursor.PeekAt(3)
		if third == '!' || (third == '/' && fourth != '/') {
			kind = token.TriviaDocLine
		}
		for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
			lx.cursor.Bump()
		}
		lx.pushTrivia(kind, start)
		return true

	case '*':
		kind := token.TriviaBlockComment
		third, fourth := lx.cursor.PeekAt(2), lx.cursor.PeekAt(3)
		if third == '!' || (third == '*' && fourth != '*' && fourth != '/') {
			kind = token.TriviaDocBlock
		}
		lx.cursor.BumpN(2)
		depth := 1
		for !lx.cursor.EOF() && depth > 0 {
			if b0, b1, ok := lx.cursor.Peek2(); ok {
				if b0 == '/' && b1 == '*' {
					lx.cursor.BumpN(2)
					depth++
					continue
				}
				if b0 == '*' && b1 == '/' {
					lx.cursor.BumpN(2)
					depth--
					continue
				}
			}
			lx.cursor.Bump()
		}
		if depth > 0 {
			lx.errLex(diag.LexUnterminatedBlockComment, lx.cursor.SpanFrom(start), "unterminated block comment")
		}
		lx.pushTrivia(kind, start)
		return true
	}
	return false
}
