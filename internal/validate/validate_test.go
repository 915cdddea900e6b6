package validate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/failure"
)

func TestSyntaxUnits(t *testing.T) {
	v := New()
	tests := []struct {
		code string
		want Unit
	}{
		{"s.len()", UnitExpr},
		{`"hello".to_string()`, UnitExpr},
		{`User { id: 1, name: Default::default() }`, UnitExpr},
		{"let mut x = 5;", UnitStmt},
		{"x += 1; y", UnitStmt},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := v.Syntax(tt.code)
			if err != nil {
				t.Fatalf("Syntax(%q): %v", tt.code, err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
	if u, err := v.Syntax("fn helper() -> u8 { 1 }"); err != nil || u == UnitNone || u == UnitExpr {
		t.Errorf("item: %s, %v", u, err)
	}
}

func TestSyntaxErrorReportsEveryAttempt(t *testing.T) {
	_, err := New().Syntax("s.len(")
	if err == nil {
		t.Fatal("expected error")
	}
	if !failure.Is(err, failure.KindValidation) {
		t.Errorf("expected validation kind, got %v", failure.KindOf(err))
	}
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error in chain: %v", err)
	}
	if len(verr.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %q", verr.Messages)
	}
	for i, prefix := range []string{"expression:", "statement:", "item:"} {
		if !strings.HasPrefix(verr.Messages[i], prefix) {
			t.Errorf("message %d = %q", i, verr.Messages[i])
		}
	}
}

func TestCacheHits(t *testing.T) {
	v := New()
	for range 3 {
		if _, err := v.Syntax("a + b"); err != nil {
			t.Fatal(err)
		}
	}
	_, err1 := v.Syntax("a +")
	_, err2 := v.Syntax("a +")
	if err1 == nil || err1 != err2 {
		t.Errorf("cached error not reused: %v / %v", err1, err2)
	}
	hits, misses, size := v.Stats()
	if hits != 3 || misses != 2 || size != 2 {
		t.Errorf("stats = %d hits, %d misses, %d entries", hits, misses, size)
	}

	v.Purge()
	if _, _, n := v.Stats(); n != 0 {
		t.Errorf("purge left %d entries", n)
	}
	if _, err := v.Syntax("a + b"); err != nil {
		t.Fatal(err)
	}
	if _, m, _ := v.Stats(); m != 3 {
		t.Errorf("purged entry served from cache")
	}
}

func TestCacheTTL(t *testing.T) {
	const ttl = 50 * time.Millisecond
	v := New(WithTTL(ttl))
	if _, err := v.Syntax("a + b"); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Syntax("a + b"); err != nil {
		t.Fatal(err)
	}
	if h, m, _ := v.Stats(); h != 1 || m != 1 {
		t.Fatalf("fresh entry: %d hits, %d misses", h, m)
	}

	time.Sleep(3 * ttl)
	if _, err := v.Syntax("a + b"); err != nil {
		t.Fatal(err)
	}
	if h, m, _ := v.Stats(); h != 1 || m != 2 {
		t.Errorf("expired entry served from cache: %d hits, %d misses", h, m)
	}
}

func TestCacheBounds(t *testing.T) {
	v := New(WithCacheSize(2))
	for _, code := range []string{"a", "b", "c", "d"} {
		if _, err := v.Syntax(code); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, n := v.Stats(); n != 2 {
		t.Errorf("size = %d, want 2", n)
	}

	nocache := New(WithTTL(0))
	nocache.Syntax("x")
	nocache.Syntax("x")
	if h, m, n := nocache.Stats(); h != 0 || m != 2 || n != 0 {
		t.Errorf("disabled cache: %d %d %d", h, m, n)
	}
}

func contextFor(t *testing.T, src string, loc diag.Location) *astctx.Context {
	t.Helper()
	loc.File = "src/lib.rs"
	c, err := astctx.NewBuilder().BuildSource("src/lib.rs", []byte(src), diag.New("E0308", diag.SevError, "mismatched types", loc))
	if err != nil {
		t.Fatalf("BuildSource: %v", err)
	}
	return c
}

func TestReturnInUnitFunction(t *testing.T) {
	unit := contextFor(t, "fn main() {\n    let x = 1;\n    x;\n}\n",
		diag.Location{Line: 3, Column: 5, EndLine: 3, EndColumn: 6})
	valued := contextFor(t, "fn f() -> i32 {\n    let x = 1;\n    x\n}\n",
		diag.Location{Line: 3, Column: 5, EndLine: 3, EndColumn: 6})

	tests := []struct {
		name    string
		code    string
		ctx     *astctx.Context
		wantErr bool
	}{
		{"return value in unit fn", "return x + 1", unit, true},
		{"statement form", "if x > 0 { return x; }", unit, true},
		{"bare return", "return", unit, false},
		{"closure return", "|y: i32| return y", unit, false},
		{"function with return type", "return x + 1", valued, false},
		{"no context", "return x", nil, false},
	}
	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(Input{Code: tt.code, Context: tt.ctx})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, failure.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		code string
		want []string
	}{
		{"opt.unwrap().len()", []string{"`unwrap()` may panic"}},
		{`todo!("implement name")`, []string{"placeholder `todo!` panics when reached"}},
		{"unsafe { *p }", []string{"contains `unsafe`"}},
		{"a.unwrap() + b.unwrap()", []string{"`unwrap()` may panic"}},
		{"unwrap(x)", nil},
		{"s.len()", nil},
	}
	v := New()
	for _, tt := range tests {
		res, err := v.Validate(Input{Code: tt.code})
		if err != nil {
			t.Fatalf("Validate(%q): %v", tt.code, err)
		}
		if !reflect.DeepEqual(res.Warnings, tt.want) {
			t.Errorf("Validate(%q) warnings = %q, want %q", tt.code, res.Warnings, tt.want)
		}
	}
	got := Semantics("call(a, [b", UnitNone, false, nil)
	if len(got) != 1 || got[0].Message != "unbalanced delimiters" || got[0].Severity != diag.SevWarning {
		t.Errorf("unbalanced: %+v", got)
	}
}

func TestEmptyAndDeletion(t *testing.T) {
	v := New()
	if _, err := v.Validate(Input{Code: "  \n"}); err == nil {
		t.Error("empty replacement accepted")
	}
	if _, err := v.Validate(Input{Code: "// only a comment"}); err == nil {
		t.Error("comment-only replacement accepted")
	}
	if _, err := v.Validate(Input{Code: "", Delete: true}); err != nil {
		t.Errorf("deletion rejected: %v", err)
	}
}

func TestValidateFile(t *testing.T) {
	v := New()
	res, err := v.Validate(Input{
		Code: "mut x",
		File: []byte("fn bump(mut x: u32) -> u32 {\n    x += 1;\n    x\n}\n"),
		Path: "src/lib.rs",
	})
	if err != nil || res.Unit != UnitFile {
		t.Fatalf("valid file: %v, %v", res, err)
	}
	_, err = v.Validate(Input{
		Code: "mut mut x",
		File: []byte("fn bump(mut mut x: u32) {}\n"),
		Path: "src/lib.rs",
	})
	var verr *Error
	if !errors.As(err, &verr) || !strings.Contains(verr.Messages[0], "line 1") {
		t.Errorf("invalid file: %v", err)
	}
	if _, err := v.Validate(Input{Delete: true, File: []byte("fn main() {\n}\n"), Path: "a.rs"}); err != nil {
		t.Errorf("deletion producing a valid file: %v", err)
	}
}
