package token

import (
	"rectify/internal/source"
)

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// IsLiteral reports whether the token is a numeric, boolean, char or string literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, CharLit, KwTrue, KwFalse:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a strict keyword.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwAs && t.Kind <= KwWhile
}

// IsPunctOrOp reports whether the token is a punctuation or operator.
func (t Token) IsPunctOrOp() bool {
	return t.Kind >= Plus && t.Kind <= RBrace
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }

// IsOpenDelim reports whether the token opens a delimited group.
func (t Token) IsOpenDelim() bool {
	return t.Kind == LParen || t.Kind == LBracket || t.Kind == LBrace
}

// IsCloseDelim reports whether the token closes a delimited group.
func (t Token) IsCloseDelim() bool {
	return t.Kind == RParen || t.Kind == RBracket || t.Kind == RBrace
}

// DocComment returns the text of leading doc comments joined by newlines.
func (t Token) DocComment() string {
	var out []byte
	for _, tr := range t.Leading {
		if tr.Kind != TriviaDocLine && tr.Kind != TriviaDocBlock {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, tr.DocText()...)
	}
	return string(out)
}
