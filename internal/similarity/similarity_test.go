package similarity

import (
	"math"
	"testing"
)

func TestLevenshteinBoundaries(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"hello", "hallo", 1},
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"same", "same", 0},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLevenshteinNormalisesNFC(t *testing.T) {
	// "é" как один код и как e + комбинирующий акцент
	if got := Levenshtein("caf\u00e9", "cafe\u0301"); got != 0 {
		t.Errorf("composed vs decomposed distance = %d", got)
	}
}

var samples = []string{"", "a", "len", "lenght", "length", "to_string", "to_owned", "count", "prnt", "println", "Ünïcödé", "x"}

func TestScoreBounds(t *testing.T) {
	for _, a := range samples {
		if got := Score(a, a); got != 1 {
			t.Errorf("Score(%q, %q) = %v, want 1", a, a, got)
		}
		for _, b := range samples {
			s := Score(a, b)
			if s < 0 || s > 1 || math.IsNaN(s) {
				t.Errorf("Score(%q, %q) = %v out of [0,1]", a, b, s)
			}
			if r := Score(b, a); r != s {
				t.Errorf("Score not symmetric for %q, %q: %v vs %v", a, b, s, r)
			}
		}
	}
	if got := Score("", ""); got != 1 {
		t.Errorf(`Score("", "") = %v`, got)
	}
	for _, x := range samples[1:] {
		if got := Score("", x); got != 0 {
			t.Errorf(`Score("", %q) = %v, want 0`, x, got)
		}
	}
}

func TestScoreComponents(t *testing.T) {
	const eps = 1e-9
	if got := JaroWinkler("MARTHA", "MARHTA"); math.Abs(got-0.9611111111) > 1e-6 {
		t.Errorf("JaroWinkler(MARTHA, MARHTA) = %v", got)
	}
	if got := PrefixRatio("lenght", "len"); math.Abs(got-0.5) > eps {
		t.Errorf("PrefixRatio = %v", got)
	}
	if got := LevenshteinRatio("lenght", "len"); math.Abs(got-0.5) > eps {
		t.Errorf("LevenshteinRatio = %v", got)
	}
	// 0.5·0.5 + 0.3·0.88333 + 0.2·0.5
	if got := Score("lenght", "len"); math.Abs(got-0.615) > 1e-3 {
		t.Errorf("Score(lenght, len) = %v", got)
	}
}

func TestSuggest(t *testing.T) {
	got := Suggest("lenght", []string{"len", "length", "lenght", "is_empty", "len", "capacity"}, DefaultThreshold)
	if len(got) != 2 {
		t.Fatalf("Suggest = %+v", got)
	}
	if got[0].Name != "length" || got[1].Name != "len" {
		t.Errorf("order = %+v", got)
	}
	if _, ok := Best("prnt", []string{"count", "s"}, DefaultThreshold); ok {
		t.Error("unrelated names suggested for prnt")
	}
	if c, ok := Best("prnt", []string{"print", "count"}, DefaultThreshold); !ok || c.Name != "print" {
		t.Errorf("Best(prnt) = %+v, %v", c, ok)
	}
}
