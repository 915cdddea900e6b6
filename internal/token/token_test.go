package token_test

import (
	"testing"

	"rectify/internal/source"
	"rectify/internal/token"
)

func tok(k token.Kind) token.Token {
	return token.Token{Kind: k, Span: source.Span{Start: 0, End: 0}}
}

func TestKindClasses(t *testing.T) {
	for _, k := range []token.Kind{token.IntLit, token.StringLit, token.CharLit, token.KwTrue} {
		if !tok(k).IsLiteral() {
			t.Fatalf("%v should be literal", k)
		}
	}
	for _, k := range []token.Kind{token.KwAs, token.KwMatch, token.KwWhile} {
		if !tok(k).IsKeyword() {
			t.Fatalf("%v should be keyword", k)
		}
	}
	for _, k := range []token.Kind{token.Plus, token.ShrAssign, token.RBrace} {
		if !tok(k).IsPunctOrOp() {
			t.Fatalf("%v should be punct", k)
		}
	}
	if tok(token.Ident).IsKeyword() || tok(token.Ident).IsPunctOrOp() {
		t.Fatalf("identifier misclassified")
	}
}

func TestLookupKeyword(t *testing.T) {
	if k, ok := token.LookupKeyword("impl"); !ok || k != token.KwImpl {
		t.Fatalf("expected impl keyword, got %v %v", k, ok)
	}
	if k, ok := token.LookupKeyword("Self"); !ok || k != token.KwSelfType {
		t.Fatalf("expected Self keyword, got %v", k)
	}
	for _, s := range []string{"union", "macro_rules", "String", "IMPL"} {
		if _, ok := token.LookupKeyword(s); ok {
			t.Fatalf("%q must not be a keyword", s)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := token.ShrAssign.String(); got != ">>=" {
		t.Fatalf("expected >>=, got %q", got)
	}
	if got := token.KwSelfValue.String(); got != "self" {
		t.Fatalf("expected self, got %q", got)
	}
}

func TestDocComment(t *testing.T) {
	tk := token.Token{
		Kind: token.KwFn,
		Leading: []token.Trivia{
			{Kind: token.TriviaDocLine, Text: "/// Returns the length."},
			{Kind: token.TriviaNewline, Text: "\n"},
			{Kind: token.TriviaLineComment, Text: "// not a doc"},
			{Kind: token.TriviaDocBlock, Text: "/** In bytes. */"},
		},
	}
	if got := tk.DocComment(); got != "Returns the length.\nIn bytes." {
		t.Fatalf("unexpected doc comment %q", got)
	}
}
