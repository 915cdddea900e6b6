package templates

import (
	"math"
	"sync"
	"testing"

	"rectify/internal/fix"
)

func names(cs []Conversion) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Template.Name
	}
	return out
}

func TestConvert(t *testing.T) {
	c := Default()
	tests := []struct {
		from, to string
		top      string
		render   string
		expr     string
		none     bool
	}{
		{from: "&str", to: "String", top: "str_to_string", expr: `"hello"`, render: `"hello".to_string()`},
		{from: "&'static str", to: "String", none: true},
		{from: "String", to: "&String", top: "borrow", expr: "name", render: "&name"},
		{from: "String", to: "&str", top: "string_as_str", expr: "a + &b", render: "(a + &b).as_str()"},
		{from: "Option<u32>", to: "u32", top: "option_expect", expr: "opt", render: `opt.expect("value")`},
		{from: "i32", to: "Option<i32>", top: "wrap_some", expr: "x + 1", render: "Some(x + 1)"},
		{from: "Option<i32>", to: "Option<i32>", none: true},
		{from: "u8", to: "u32", top: "numeric_from", expr: "b", render: "u32::from(b)"},
		{from: "u64", to: "u32", top: "numeric_try_from", expr: "n", render: `u32::try_from(n).expect("value out of range")`},
		{from: "&i32", to: "i32", top: "deref_copy", expr: "r", render: "*r"},
		{from: "&Vec<u8>", to: "Vec<u8>", top: "clone_ref", expr: "v", render: "v.clone()"},
		{from: "&[u8]", to: "Vec<u8>", top: "slice_to_vec", expr: "buf", render: "buf.to_vec()"},
		{from: "String", to: "i32", none: true},
		{from: "Vec<", to: "i32", none: true},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			got := c.Convert(tt.from, tt.to)
			if tt.none {
				if len(got) != 0 {
					t.Fatalf("expected no conversions, got %v", names(got))
				}
				return
			}
			if len(got) == 0 {
				t.Fatal("expected conversions, got none")
			}
			if got[0].Template.Name != tt.top {
				t.Errorf("expected top %s, got %v", tt.top, names(got))
			}
			for i := 1; i < len(got); i++ {
				if got[i].Template.Confidence > got[i-1].Template.Confidence {
					t.Errorf("not sorted by confidence: %v", names(got))
				}
			}
			if r := got[0].Render(tt.expr); r != tt.render {
				t.Errorf("expected %q, got %q", tt.render, r)
			}
		})
	}
}

func TestStrToStringEntry(t *testing.T) {
	tm, ok := Default().Get("str_to_string")
	if !ok {
		t.Fatal("str_to_string missing")
	}
	if tm.Confidence != 0.95 || tm.Safety != fix.Safe || tm.Method() != ".to_string()" {
		t.Errorf("unexpected entry %+v", tm)
	}
}

func TestUnwrappers(t *testing.T) {
	got := Default().Unwrappers("Option<String>")
	if len(got) < 2 || got[0].Template.Name != "option_expect" || got[0].To != "String" {
		t.Fatalf("unwrappers = %+v", got)
	}
	if len(Default().Unwrappers("String")) != 0 {
		t.Error("plain String has unwrappers")
	}
	res := Default().Unwrappers("Result<Vec<u8>, io::Error>")
	if len(res) == 0 || res[0].To != "Vec<u8>" {
		t.Errorf("result unwrappers = %+v", res)
	}
}

func TestLossless(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{"u8", "u16", true},
		{"u8", "i16", true},
		{"u16", "i16", false},
		{"i8", "u64", false},
		{"i32", "f64", true},
		{"i64", "f64", false},
		{"f32", "f64", true},
		{"u16", "usize", true},
		{"u32", "usize", false},
		{"u8", "isize", true},
		{"usize", "u64", false},
		{"u8", "u8", false},
	}
	for _, tt := range tests {
		if got := Lossless(tt.from, tt.to); got != tt.want {
			t.Errorf("Lossless(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestUsageAndEffectiveness(t *testing.T) {
	c, err := New(Template{Name: "x", Category: CategoryString, From: "&str", To: "String",
		Replacement: ".into()", Confidence: 0.8})
	if err != nil {
		t.Fatal(err)
	}
	if c.Effectiveness("x") != 0 {
		t.Error("unused template has non-zero effectiveness")
	}
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordUse("x")
		}()
	}
	wg.Wait()
	c.RecordUse("missing")
	if c.Usage("x") != 10 {
		t.Fatalf("usage = %d", c.Usage("x"))
	}
	if want := 0.8 * math.Log(10); math.Abs(c.Effectiveness("x")-want) > 1e-12 {
		t.Errorf("effectiveness = %v, want %v", c.Effectiveness("x"), want)
	}
	if c.Effectiveness("missing") != 0 || c.Usage("missing") != 0 {
		t.Error("unknown template has stats")
	}
}

func TestNewRejectsBadTemplates(t *testing.T) {
	if _, err := New(Template{Name: "a", From: "Vec<", To: "T"}); err == nil {
		t.Error("malformed pattern accepted")
	}
	ok := Template{Name: "a", From: "T", To: "T"}
	if _, err := New(ok, ok); err == nil {
		t.Error("duplicate name accepted")
	}
}

func TestBuiltinSet(t *testing.T) {
	c := Default()
	seen := map[Category]int{}
	for _, tm := range c.All() {
		seen[tm.Category]++
		if tm.Confidence <= 0 || tm.Confidence > 1 {
			t.Errorf("%s: confidence %v", tm.Name, tm.Confidence)
		}
	}
	for _, cat := range []Category{CategoryString, CategoryOption, CategoryReference, CategoryNumeric, CategoryBox} {
		if seen[cat] == 0 || len(c.ByCategory(cat)) != seen[cat] {
			t.Errorf("category %s: %d templates", cat, seen[cat])
		}
	}
}
