package typepat

import (
	"errors"
	"testing"

	"rectify/internal/failure"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		typ, pattern string
		want         bool
	}{
		{"Vec<i32>", "Vec<T>", true},
		{"Option<String>", "Option<T>", true},
		{"String", "i32", false},
		{"String", "T", true},
		{"Vec<Vec<u8>>", "Vec<Vec<T>>", true},
		{"Vec<Option<u8>>", "Vec<Vec<T>>", false},
		{"Result<u8, String>", "Result<T, E>", true},
		{"Result<u8, String>", "Result<T, T>", false},
		{"Result<u8, u8>", "Result<T, T>", true},
		{"&str", "&T", true},
		{"&mut str", "&T", false},
		{"&'a str", "&str", false},
		{"& 'a str", "&'a T", true},
		{"std::string::String", "String", true},
		{"HashMap< String , Vec<u8> >", "HashMap<K, V>", true},
		{"(i32, String)", "(T, U)", true},
		{"()", "T", true},
		{"[u8; 4]", "[T; 4]", true},
		{"[u8]", "[T]", true},
		{"Box<dyn Error + Send>", "Box<T>", true},
		{"fn(i32) -> bool", "fn(T) -> bool", true},
		{"Vec<", "Vec<T>", false},
		{"{integer}", "{integer}", true},
	}
	for _, tt := range tests {
		if got := Matches(tt.typ, tt.pattern); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.typ, tt.pattern, got, tt.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Vec< i32 >", "Vec<i32>"},
		{"&'a mut [u8]", "&'a mut [u8]"},
		{"(u8,)", "(u8,)"},
		{"((u8))", "u8"},
		{"*const c_void", "*const c_void"},
		{"impl Iterator<Item = u8>", "impl Iterator<Item = u8>"},
		{"fn(&str) -> Result<(), E>", "fn(&str) -> Result<(), E>"},
		{"std::collections::HashMap<K,V>", "std::collections::HashMap<K, V>"},
		{"Vec::<u8>", "Vec<u8>"},
		{"!", "!"},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tt.in, got.String(), tt.want)
		}
	}
	for _, bad := range []string{"", "Vec<", "*u8", "[u8", "(u8", "fn u8"} {
		if got, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) = %v, want error", bad, got)
		}
	}
}

func TestParseErrorKind(t *testing.T) {
	_, err := Parse("Vec<u8")
	if !errors.Is(err, failure.ErrParse) || !errors.Is(err, errSyntax) {
		t.Errorf("err = %v", err)
	}
}

func TestBindAndSubst(t *testing.T) {
	b, ok := Match(MustParse("Option<Vec<u8>>"), MustParse("Option<T>"), nil)
	if !ok {
		t.Fatal("no match")
	}
	if got := b["T"].String(); got != "Vec<u8>" {
		t.Errorf("T = %q", got)
	}
	// связка переносится на вторую половину пары преобразования
	if got := b.Subst(MustParse("Result<T, E>")).String(); got != "Result<Vec<u8>, E>" {
		t.Errorf("Subst = %q", got)
	}
	if _, ok := Match(MustParse("Vec<i8>"), MustParse("Vec<T>"), b); ok {
		t.Error("inconsistent binding accepted")
	}
}
