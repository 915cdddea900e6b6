package fix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"rectify/internal/source"
)

var (
	// ErrConflict is returned when two edits of one batch overlap.
	ErrConflict = errors.New("overlapping edits")
	// ErrGuardMismatch is returned when the text under an edit is not the expected one.
	ErrGuardMismatch = errors.New("existing text does not match expected content")
	// ErrOutOfRange is returned for edits outside the content.
	ErrOutOfRange = errors.New("edit span out of range")
	// ErrNoFixes is returned by Select when nothing is selectable.
	ErrNoFixes = errors.New("no applicable fixes found")
	// ErrFixNotFound is returned by Select in ApplyModeID when no candidate
	// has the requested ID. It wraps ErrNoFixes.
	ErrFixNotFound = fmt.Errorf("%w: fix id not found", ErrNoFixes)
)

// Apply applies edits to content from end to start and returns the new bytes.
// Either every edit is applied or none is. Line terminators in NewText are
// converted to the line ending used by content, so a CRLF file stays CRLF.
func Apply(content []byte, edits []Edit) ([]byte, error) {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start == sorted[j].Span.Start {
			return sorted[i].Span.End > sorted[j].Span.End
		}
		return sorted[i].Span.Start > sorted[j].Span.Start
	})
	for i := 1; i < len(sorted); i++ {
		if spansConflict(sorted[i-1], sorted[i]) {
			return nil, fmt.Errorf("%w: %s and %s", ErrConflict, sorted[i], sorted[i-1])
		}
	}

	eol := source.DetectLineEnding(content)
	working := append([]byte(nil), content...)
	for _, edit := range sorted {
		start, end := int(edit.Span.Start), int(edit.Span.End)
		if end < start || end > len(working) {
			return nil, fmt.Errorf("%w: %s (content is %d bytes)", ErrOutOfRange, edit, len(working))
		}
		if edit.OldText != "" && string(working[start:end]) != edit.OldText {
			return nil, fmt.Errorf("%w: at %d-%d found %q, want %q",
				ErrGuardMismatch, start, end, working[start:end], edit.OldText)
		}
		newText := source.ToLineEnding(edit.NewText, eol)
		suffix := append([]byte(nil), working[end:]...)
		working = append(append(working[:start], newText...), suffix...)
	}
	return working, nil
}

// spansConflict reports whether two text edits' spans overlap.
// Spans are treated as half-open intervals [Start, End). Two zero-length edits
// conflict only at the same position, where their order would be ambiguous. A
// zero-length edit conflicts with a non-zero span if its position is strictly
// inside that span.
func spansConflict(a, b Edit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return aStart == bStart
	}
	if aStart == aEnd {
		return bStart < aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart < bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

// Conflicts reports whether any edit of a overlaps any edit of b.
func Conflicts(a, b []Edit) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Span.File == y.Span.File && spansConflict(x, y) {
				return true
			}
		}
	}
	return false
}

// ApplyFile applies edits to the file at path and writes it back.
func ApplyFile(path string, edits []Edit) error {
	// #nosec G304 -- path comes from the diagnostics of the project being fixed
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := Apply(content, edits)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return WriteFile(path, out)
}

// WriteFile replaces path with data, keeping the file mode. The data goes to a
// temporary file in the same directory first and is renamed over path, so
// readers never observe a half-written file.
func WriteFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".rectify-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
