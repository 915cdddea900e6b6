package diag

import "strings"

// Severity defines the importance of a finding. The names follow the compiler's
// own vocabulary so they round-trip through parsed output.
type Severity uint8

const (
	// SevNote is for notes and help messages attached to the build output.
	SevNote Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevNote:
		return "note"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity maps a compiler level string onto Severity.
// "help" and unknown levels collapse into SevNote; ICEs count as errors.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "error: internal compiler error", "failure-note":
		return SevError
	case "warning":
		return SevWarning
	default:
		return SevNote
	}
}
