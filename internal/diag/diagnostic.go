package diag

import (
	"fmt"
	"strings"
)

// Location points at a range in a source file using 1-based lines and
// character columns. EndLine/EndColumn are zero for a point location.
type Location struct {
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// IsPoint reports whether the location has no end position.
func (l Location) IsPoint() bool {
	return l.EndLine == 0 && l.EndColumn == 0
}

func (l Location) String() string {
	if l.IsPoint() {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", l.File, l.Line, l.Column, l.EndLine, l.EndColumn)
}

// Diagnostic is a structured compiler message. Values are created by a
// Diagnoser and never modified afterwards.
type Diagnostic struct {
	ID       string
	Code     string // optional: "E0599", "unused_imports", "method-missing"
	Level    Severity
	Message  string
	Location Location
	Hints    []string
}

// New builds a Diagnostic with a stable ID derived from its code and location.
func New(code string, level Severity, msg string, loc Location, hints ...string) Diagnostic {
	return Diagnostic{
		ID:       StableID(code, loc),
		Code:     code,
		Level:    level,
		Message:  msg,
		Location: loc,
		Hints:    hints,
	}
}

// StableID returns an identifier that stays the same across rescans as long as
// the finding does not move.
func StableID(code string, loc Location) string {
	if code == "" {
		code = "-"
	}
	return fmt.Sprintf("%s@%s", code, loc.String())
}

// Family returns the strategy family of the diagnostic's code, falling back to
// the message text for lints reported without a code.
func (d Diagnostic) Family() Family {
	if f := FamilyOf(d.Code); f != FamilyOther {
		return f
	}
	return familyFromMessage(d.Message)
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Level.String())
	if d.Code != "" {
		sb.WriteString("[")
		sb.WriteString(d.Code)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	sb.WriteString(" at ")
	sb.WriteString(d.Location.String())
	return sb.String()
}

// Names extracts every backticked token from the message, in order:
// "no method named `lenght` found for struct `String`" -> [lenght String].
func (d Diagnostic) Names() []string {
	return Backticked(d.Message)
}

// Backticked returns the substrings enclosed in backticks.
func Backticked(s string) []string {
	var out []string
	for {
		i := strings.IndexByte(s, '`')
		if i < 0 {
			return out
		}
		s = s[i+1:]
		j := strings.IndexByte(s, '`')
		if j < 0 {
			return out
		}
		out = append(out, s[:j])
		s = s[j+1:]
	}
}
