package docs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := map[string]string{
		"String":                "String",
		"&str":                  "str",
		"&'a mut Vec<u8>":       "Vec",
		"std::string::String":   "String",
		"&[i32]":                "[]",
		"Option<&str>":          "Option",
		" HashMap<String, i32>": "HashMap",
	}
	for in, want := range tests {
		if got := Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestArity(t *testing.T) {
	tests := []struct {
		sig  string
		want int
	}{
		{"fn len(&self) -> usize", 0},
		{"fn push(&mut self, value: T)", 1},
		{"fn insert(&mut self, k: K, v: V) -> Option<V>", 2},
		{"fn map<U, F: FnOnce(T) -> U>(self, f: F) -> Option<U>", 1},
		{"fn new() -> Self", 0},
		{"fn f(a: (i32, i32), b: [u8; 4])", 2},
		{"len", -1},
	}
	for _, tt := range tests {
		if got := (Method{Signature: tt.sig}).Arity(); got != tt.want {
			t.Errorf("Arity(%q) = %d, want %d", tt.sig, got, tt.want)
		}
	}
}

func TestBuiltin(t *testing.T) {
	ctx := context.Background()
	d, err := Builtin{}.Lookup(ctx, "&mut String")
	if err != nil || d == nil {
		t.Fatalf("Lookup(String) = %v, %v", d, err)
	}
	m, ok := d.Method("len")
	if !ok || m.Arity() != 0 {
		t.Errorf("String.len = %+v, %v", m, ok)
	}
	if _, ok := d.Method("push_str"); !ok {
		t.Error("String.push_str missing")
	}
	if d, _ := (Builtin{}).Lookup(ctx, "MyType"); d != nil {
		t.Errorf("unknown type returned %+v", d)
	}
	if got := TraitsProviding("write_all"); len(got) != 1 || got[0].Path != "std::io::Write" {
		t.Errorf("TraitsProviding(write_all) = %v", got)
	}
	if p, ok := StdPath("HashMap"); !ok || p != "std::collections::HashMap" {
		t.Errorf("StdPath(HashMap) = %q, %v", p, ok)
	}
	if !IsPrelude("Vec") || IsPrelude("HashMap") {
		t.Error("IsPrelude mismatch")
	}
}

type countingProvider struct {
	calls int
	docs  *CachedDocs
	err   error
}

func (p *countingProvider) Lookup(context.Context, string) (*CachedDocs, error) {
	p.calls++
	return p.docs, p.err
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	static := NewStatic(&CachedDocs{TypeName: "Widget", Methods: []Method{{Name: "spin"}}})
	c := Chain{&countingProvider{err: boom}, static, Builtin{}}

	d, err := c.Lookup(ctx, "Widget")
	if err != nil || d == nil || d.Source != "static" {
		t.Fatalf("Lookup(Widget) = %+v, %v", d, err)
	}
	if d, err := c.Lookup(ctx, "Vec<u8>"); err != nil || d == nil || d.Source != "builtin" {
		t.Errorf("Lookup(Vec) = %+v, %v", d, err)
	}
	if _, err := c.Lookup(ctx, "Nope"); !errors.Is(err, boom) {
		t.Errorf("expected joined provider error, got %v", err)
	}
}

func TestLRUCachesMisses(t *testing.T) {
	next := &countingProvider{}
	l, err := NewLRU(next, 2)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if d, err := l.Lookup(context.Background(), "Unknown"); d != nil || err != nil {
			t.Fatalf("Lookup = %v, %v", d, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", next.calls)
	}
	hits, misses, size := l.Stats()
	if hits != 2 || misses != 1 || size != 1 {
		t.Errorf("Stats = %d/%d/%d", hits, misses, size)
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	next := &countingProvider{docs: &CachedDocs{TypeName: "Widget", Methods: []Method{{Name: "spin", Signature: "fn spin(&self, n: u32)"}}, Source: "test"}}
	c, err := OpenDiskCache(dir, next, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := c.Lookup(ctx, "Widget"); err != nil {
		t.Fatal(err)
	}
	// новый экземпляр читает с диска
	c2, err := OpenDiskCache(dir, next, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c2.now = c.now
	d, err := c2.Lookup(ctx, "&Widget")
	if err != nil || d == nil {
		t.Fatalf("Lookup from disk = %v, %v", d, err)
	}
	if next.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", next.calls)
	}
	if m, ok := d.Method("spin"); !ok || m.Arity() != 1 {
		t.Errorf("spin = %+v, %v", m, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, err := c2.Lookup(ctx, "Widget"); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("stale entry not refreshed: %d calls", next.calls)
	}

	if err := c2.DropAll(); err != nil {
		t.Fatal(err)
	}
	c2.next = nil
	if d, _ := c2.Lookup(ctx, "Widget"); d != nil {
		t.Errorf("entry survived DropAll: %+v", d)
	}
}
