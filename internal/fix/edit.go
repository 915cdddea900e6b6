package fix

import (
	"fmt"
	"strings"

	"rectify/internal/source"
)

// Edit replaces the bytes covered by Span with NewText. OldText, when set,
// guards the edit: it is applied only if the current text equals OldText.
type Edit struct {
	Span    source.Span
	NewText string
	OldText string
}

// IsInsert reports whether the edit only inserts text.
func (e Edit) IsInsert() bool { return e.Span.Empty() }

// IsDelete reports whether the edit only removes text.
func (e Edit) IsDelete() bool { return !e.Span.Empty() && e.NewText == "" }

func (e Edit) String() string {
	return fmt.Sprintf("%d-%d %q -> %q", e.Span.Start, e.Span.End, e.OldText, e.NewText)
}

// Safety is the reviewer-attention class of a fix.
type Safety uint8

const (
	// Safe fixes may be applied without review.
	Safe Safety = iota
	// RequiresReview fixes are plausible but change behaviour or guess intent.
	RequiresReview
	// Unsafe fixes may change semantics silently (deleting statements, unwrap).
	Unsafe
)

func (s Safety) String() string {
	switch s {
	case Safe:
		return "safe"
	case RequiresReview:
		return "requires-review"
	case Unsafe:
		return "unsafe"
	}
	return "unknown"
}

// ParseSafety accepts the String forms and a few spellings used in configs.
func ParseSafety(s string) (Safety, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return Safe, nil
	case "requires-review", "requires_review", "review", "requiresreview":
		return RequiresReview, nil
	case "unsafe":
		return Unsafe, nil
	}
	return Unsafe, fmt.Errorf("unknown safety level %q", s)
}

// Stricter returns the stricter of two levels.
func Stricter(a, b Safety) Safety {
	return max(a, b)
}

// Allows reports whether a fix of level s may be applied under policy max.
func (s Safety) Allows(fix Safety) bool {
	return fix <= s
}
