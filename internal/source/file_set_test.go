package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileOffsetRoundTrip(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.rs", []byte("fn main() {\n    let ß = 1;\n    s.lenght();\n}\n"))
	f := fs.Get(id)

	tests := []struct {
		pos  LineCol
		want uint32
	}{
		{LineCol{Line: 1, Col: 1}, 0},
		{LineCol{Line: 2, Col: 5}, 16},
		{LineCol{Line: 2, Col: 10}, 22}, // after the two-byte ß
		{LineCol{Line: 3, Col: 7}, 34},
	}
	for _, tt := range tests {
		off, ok := f.Offset(tt.pos)
		if !ok {
			t.Fatalf("Offset(%+v) not resolved", tt.pos)
		}
		if off != tt.want {
			t.Errorf("Offset(%+v) = %d, want %d", tt.pos, off, tt.want)
		}
		if back := f.LineCol(off); back != tt.pos {
			t.Errorf("LineCol(%d) = %+v, want %+v", off, back, tt.pos)
		}
	}
}

func TestFileOffsetOutOfBounds(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("a.rs", []byte("ab\ncd")))

	if _, ok := f.Offset(LineCol{Line: 3, Col: 1}); ok {
		t.Errorf("expected line 3 to be out of bounds")
	}
	if _, ok := f.Offset(LineCol{Line: 1, Col: 5}); ok {
		t.Errorf("expected column 5 to be out of bounds")
	}
	if off, ok := f.Offset(LineCol{Line: 2, Col: 3}); !ok || off != 5 {
		t.Errorf("expected end of last line at 5, got %d (%v)", off, ok)
	}
}

func TestLoadKeepsCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.rs")
	raw := []byte("fn a() {}\r\nfn b() {}\r\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != string(raw) {
		t.Fatalf("content was rewritten: %q", f.Content)
	}
	if f.Flags&FileUsesCRLF == 0 {
		t.Errorf("expected FileUsesCRLF flag")
	}
	if got := f.GetLine(2); got != "fn b() {}" {
		t.Errorf("GetLine(2) = %q", got)
	}
}

func TestToLineEnding(t *testing.T) {
	if got := ToLineEnding("a\nb\r\nc", "\r\n"); got != "a\r\nb\r\nc" {
		t.Errorf("unexpected CRLF conversion: %q", got)
	}
	if got := ToLineEnding("a\nb", "\n"); got != "a\nb" {
		t.Errorf("LF text must be untouched, got %q", got)
	}
}

func TestSpanRelations(t *testing.T) {
	outer := Span{File: 1, Start: 10, End: 20}
	tests := []struct {
		name     string
		other    Span
		contains bool
		overlaps bool
	}{
		{"inner", Span{File: 1, Start: 12, End: 15}, true, true},
		{"same", outer, true, true},
		{"empty at end", Span{File: 1, Start: 20, End: 20}, true, false},
		{"straddles", Span{File: 1, Start: 18, End: 25}, false, true},
		{"adjacent", Span{File: 1, Start: 20, End: 25}, false, false},
		{"other file", Span{File: 2, Start: 12, End: 15}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outer.Contains(tt.other); got != tt.contains {
				t.Errorf("Contains = %v, want %v", got, tt.contains)
			}
			if got := outer.Overlaps(tt.other); got != tt.overlaps {
				t.Errorf("Overlaps = %v, want %v", got, tt.overlaps)
			}
		})
	}
}

func TestSpanShiftLeftGuard(t *testing.T) {
	s := Span{File: 1, Start: 5, End: 10}
	if got := s.ShiftLeft(6); got != s {
		t.Errorf("expected unchanged span, got %+v", got)
	}
	if got := s.ShiftLeft(5); got != (Span{File: 1, Start: 0, End: 5}) {
		t.Errorf("unexpected shift: %+v", got)
	}
}
