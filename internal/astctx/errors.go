package astctx

import (
	"fmt"

	"rectify/internal/diag"
	"rectify/internal/source"
)

// ParseError reports that the file does not parse. Line is 1-based.
type ParseError struct {
	Message string
	Line    int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}

// NodeNotFoundError reports a diagnostic location that maps to no
// grammatical unit: outside the file, or inside trivia between items.
type NodeNotFoundError struct {
	Location diag.Location
	Span     source.Span
}

func (e *NodeNotFoundError) Error() string {
	if e.Span.Empty() && e.Span.Start == 0 {
		return fmt.Sprintf("no syntax node at %s", e.Location)
	}
	return fmt.Sprintf("no syntax node contains %s (bytes %d-%d)", e.Location, e.Span.Start, e.Span.End)
}
