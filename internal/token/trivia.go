package token

import (
	"strings"

	"rectify/internal/source"
)

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	TriviaNewline
	TriviaLineComment
	TriviaBlockComment
	TriviaDocLine  // /// или //!
	TriviaDocBlock // /** */ или /*! */
)

type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}

// DocText strips the comment markers from a doc trivia.
func (tr Trivia) DocText() string {
	switch tr.Kind {
	case TriviaDocLine:
		s := strings.TrimPrefix(tr.Text, "///")
		s = strings.TrimPrefix(s, "//!")
		return strings.TrimSpace(s)
	case TriviaDocBlock:
		s := strings.TrimPrefix(tr.Text, "/**")
		s = strings.TrimPrefix(s, "/*!")
		s = strings.TrimSuffix(s, "*/")
		return strings.TrimSpace(s)
	default:
		return ""
	}
}
