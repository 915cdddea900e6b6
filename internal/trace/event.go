package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1 // span start
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd // span end
	// KindPoint represents an instant event.
	KindPoint     // instant event
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeRun is a whole fix/propose/watch run.
	ScopeRun Scope = iota + 1
	// ScopeFile is per-file work: scans, snapshots, applies.
	ScopeFile
	// ScopeDiagnostic is per-diagnostic work: context building, generation.
	ScopeDiagnostic
	// ScopeProposal is per-proposal work: validation, scoring.
	ScopeProposal
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopeFile:
		return "file"
	case ScopeDiagnostic:
		return "diagnostic"
	case ScopeProposal:
		return "proposal"
	default:
		return "unknown"
	}
}

// Subject names the source file and diagnostic an event is about. Both are
// optional; run-level events have neither.
type Subject struct {
	File string
	Code string
}

func (s Subject) empty() bool { return s.File == "" && s.Code == "" }

// matches reports whether an event about ev falls under s: every non-empty
// field of s must be equal.
func (s Subject) matches(ev Subject) bool {
	return (s.File == "" || s.File == ev.File) && (s.Code == "" || s.Code == ev.Code)
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	GID      uint64            // goroutine ID (for concurrent spans)
	Subject  Subject           // file and diagnostic code, if any
	Name     string            // e.g. "scan", "snapshot", "strategy.failed"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
