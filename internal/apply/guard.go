package apply

import (
	"fmt"
	"strings"
	"time"

	"rectify/internal/diag"
)

// DefaultWarningFactor is the tolerated growth of the warning count.
const DefaultWarningFactor = 1.5

// DefaultCriticalPatterns are error messages that always count as a
// regression when an edit introduces them.
var DefaultCriticalPatterns = []string{
	"cannot find",
	"mismatched types",
	"use of moved value",
	"borrow checker",
}

// Policy decides when an edit counts as a regression.
type Policy struct {
	CriticalPatterns []string
	WarningFactor    float64
	// ScanTimeout bounds each diagnostic scan; zero means no deadline.
	ScanTimeout time.Duration
}

// DefaultPolicy returns the default regression policy.
func DefaultPolicy() Policy {
	return Policy{
		CriticalPatterns: append([]string(nil), DefaultCriticalPatterns...),
		WarningFactor:    DefaultWarningFactor,
	}
}

// ShouldTriggerRecovery compares the diagnostics before and after an edit.
// It reports a regression when errors grew, when warnings grew past the
// policy factor, or when a new error matches a critical pattern. reason is
// empty when there is no regression.
func ShouldTriggerRecovery(pre, post diag.FileDiagnostics, p Policy) (regressed bool, reason string) {
	if post.ErrorCount > pre.ErrorCount {
		return true, fmt.Sprintf("errors %d -> %d", pre.ErrorCount, post.ErrorCount)
	}
	factor := p.WarningFactor
	if factor <= 0 {
		factor = DefaultWarningFactor
	}
	if float64(post.WarningCount) > float64(pre.WarningCount)*factor {
		return true, fmt.Sprintf("warnings %d -> %d", pre.WarningCount, post.WarningCount)
	}
	for _, msg := range diag.NewErrors(pre, post) {
		lower := strings.ToLower(msg)
		for _, pat := range p.CriticalPatterns {
			if pat != "" && strings.Contains(lower, strings.ToLower(pat)) {
				return true, "new error: " + msg
			}
		}
	}
	return false, ""
}
