package fix

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"rectify/internal/source"
)

func sp(start, end uint32) source.Span { return source.Span{File: 1, Start: start, End: end} }

func TestApplyEndToStart(t *testing.T) {
	content := []byte(`let s = "hello"; s.lenght();`)
	edits := []Edit{
		Replace(sp(8, 15), `"hello".to_string()`, `"hello"`),
		Replace(sp(17, 27), "s.len()", "s.lenght()"),
	}
	got, err := Apply(content, edits)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if want := `let s = "hello".to_string(); s.len();`; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if string(content) != `let s = "hello"; s.lenght();` {
		t.Error("input buffer modified")
	}
}

func TestApplyFailures(t *testing.T) {
	content := []byte("abcdef")
	tests := []struct {
		name  string
		edits []Edit
		want  error
	}{
		{"overlap", []Edit{Replace(sp(0, 3), "x", ""), Replace(sp(2, 4), "y", "")}, ErrConflict},
		{"two inserts at one point", []Edit{Insert(sp(2, 2), "x"), Insert(sp(2, 2), "y")}, ErrConflict},
		{"insert inside replacement", []Edit{Replace(sp(1, 4), "x", ""), Insert(sp(2, 2), "y")}, ErrConflict},
		{"guard", []Edit{Replace(sp(0, 3), "x", "abd")}, ErrGuardMismatch},
		{"range", []Edit{Replace(sp(4, 10), "x", "")}, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Apply(content, tt.edits); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	// вставка на границе замены не конфликтует
	got, err := Apply(content, []Edit{Replace(sp(1, 3), "X", "bc"), Insert(sp(3, 3), "|")})
	if err != nil || string(got) != "aX|def" {
		t.Errorf("adjacent insert: %q, %v", got, err)
	}
}

func TestApplyKeepsCRLF(t *testing.T) {
	content := []byte("fn a() {\r\n    x\r\n}\r\n")
	got, err := Apply(content, []Edit{Replace(sp(14, 15), "let y = 1;\n    y", "x")})
	if err != nil {
		t.Fatal(err)
	}
	if want := "fn a() {\r\n    let y = 1;\r\n    y\r\n}\r\n"; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDeleteLine(t *testing.T) {
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("a.rs", []byte("use std::fmt;\n    let x = 1;\nfoo(); bar();\n")))
	e := DeleteLine(f, source.Span{File: f.ID, Start: 18, End: 28})
	if e.OldText != "    let x = 1;\n" {
		t.Errorf("whole line: %q", e.OldText)
	}
	e = DeleteLine(f, source.Span{File: f.ID, Start: 36, End: 42})
	if e.OldText != "bar();" {
		t.Errorf("shared line: %q", e.OldText)
	}
}

func TestWriteFileKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.rs")
	if err := os.WriteFile(path, []byte("fn main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := ApplyFile(path, []Edit{Insert(sp(12, 12), " // ok")}); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "fn main() {} // ok\n" {
		t.Errorf("content = %q", got)
	}
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, %v", info.Mode(), err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestSelect(t *testing.T) {
	cands := []Candidate{
		{ID: "a", Path: "x.rs", Edits: []Edit{Replace(sp(0, 2), "", "")}, Safety: Safe, Confidence: 0.95, Order: 0},
		{ID: "b", Path: "x.rs", Edits: []Edit{Replace(sp(10, 12), "", "")}, Safety: RequiresReview, Confidence: 0.8, Order: 1},
		{ID: "c", Path: "x.rs", Edits: []Edit{Replace(sp(1, 3), "", "")}, Safety: Safe, Confidence: 0.9, Order: 2},
		{ID: "d", Path: "y.rs", Edits: []Edit{Replace(sp(5, 6), "", "")}, Safety: Unsafe, Confidence: 0.99, Order: 3},
		{ID: "e", Path: "y.rs", Safety: Safe, Confidence: 0.99, Order: 4},
	}
	ids := func(cs []Candidate) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	all, skipped, err := Select(append([]Candidate(nil), cands...), SelectOptions{Mode: ApplyModeAll, MaxSafety: RequiresReview})
	if err != nil {
		t.Fatal(err)
	}
	// c пересекается с более уверенным a; порядок от конца файла
	if got := ids(all); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("all = %v", got)
	}
	if len(skipped) != 3 {
		t.Errorf("skipped = %+v", skipped)
	}
	for _, s := range skipped {
		if s.ID == "c" && s.Reason != "overlaps a more confident fix" {
			t.Errorf("c skipped for %q", s.Reason)
		}
	}

	once, _, err := Select(append([]Candidate(nil), cands...), SelectOptions{Mode: ApplyModeOnce, MaxSafety: Safe})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(once); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("once = %v", got)
	}

	byID, _, err := Select(append([]Candidate(nil), cands...), SelectOptions{Mode: ApplyModeID, TargetID: "d", MaxSafety: Unsafe})
	if err != nil || len(byID) != 1 || byID[0].ID != "d" {
		t.Errorf("by id = %v, %v", byID, err)
	}
	_, _, err = Select(append([]Candidate(nil), cands...), SelectOptions{Mode: ApplyModeID, TargetID: "zz", MaxSafety: Unsafe})
	if !errors.Is(err, ErrFixNotFound) || !errors.Is(err, ErrNoFixes) {
		t.Errorf("missing id err = %v", err)
	}
}

func TestSelectByIDHonoursSafety(t *testing.T) {
	cands := []Candidate{
		{ID: "d", Path: "y.rs", Edits: []Edit{Replace(sp(5, 6), "", "")}, Safety: Unsafe, Confidence: 0.99},
	}
	got, skipped, err := Select(cands, SelectOptions{Mode: ApplyModeID, TargetID: "d", MaxSafety: RequiresReview})
	if len(got) != 0 || !errors.Is(err, ErrNoFixes) || errors.Is(err, ErrFixNotFound) {
		t.Fatalf("unsafe fix selected by id: %v, %v", got, err)
	}
	if len(skipped) != 1 || skipped[0].Reason != "safety is unsafe" {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestSafety(t *testing.T) {
	if Stricter(Safe, RequiresReview) != RequiresReview || Stricter(Unsafe, Safe) != Unsafe {
		t.Error("Stricter")
	}
	if !RequiresReview.Allows(Safe) || RequiresReview.Allows(Unsafe) {
		t.Error("Allows")
	}
	for _, s := range []Safety{Safe, RequiresReview, Unsafe} {
		got, err := ParseSafety(s.String())
		if err != nil || got != s {
			t.Errorf("ParseSafety(%q) = %v, %v", s.String(), got, err)
		}
	}
}
