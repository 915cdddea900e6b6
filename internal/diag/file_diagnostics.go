package diag

import (
	"sort"
	"time"
)

// Message is one line of scan output retained for regression comparison.
type Message struct {
	Level Severity
	Text  string
}

// FileDiagnostics summarises the findings for one file at a point in time.
type FileDiagnostics struct {
	Path          string
	ErrorCount    int
	WarningCount  int
	Messages      []Message
	ScanTimestamp time.Time
}

// Summarize builds FileDiagnostics for path from the diagnostics located in it.
// Notes are kept in Messages but do not count.
func Summarize(path string, ds []Diagnostic, at time.Time) FileDiagnostics {
	fd := FileDiagnostics{Path: path, ScanTimestamp: at.UTC()}
	for _, d := range ds {
		switch d.Level {
		case SevError:
			fd.ErrorCount++
		case SevWarning:
			fd.WarningCount++
		}
		fd.Messages = append(fd.Messages, Message{Level: d.Level, Text: d.Message})
	}
	sort.SliceStable(fd.Messages, func(i, j int) bool {
		if fd.Messages[i].Level != fd.Messages[j].Level {
			return fd.Messages[i].Level > fd.Messages[j].Level
		}
		return fd.Messages[i].Text < fd.Messages[j].Text
	})
	return fd
}

// Errors returns the error-level message texts.
func (fd FileDiagnostics) Errors() []string {
	var out []string
	for _, m := range fd.Messages {
		if m.Level == SevError {
			out = append(out, m.Text)
		}
	}
	return out
}

// NewErrors returns error messages present in post but not in pre,
// respecting multiplicity: a second copy of an old message is new.
func NewErrors(pre, post FileDiagnostics) []string {
	seen := make(map[string]int)
	for _, m := range pre.Errors() {
		seen[m]++
	}
	var out []string
	for _, m := range post.Errors() {
		if seen[m] > 0 {
			seen[m]--
			continue
		}
		out = append(out, m)
	}
	return out
}
