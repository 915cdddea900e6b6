package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"rectify/internal/apply"
	"rectify/internal/diag"
	"rectify/internal/observ"
	"rectify/internal/proposal"
)

// Outcome is what the engine did with one diagnostic.
type Outcome uint8

const (
	// Proposed means a proposal was selected but not applied (dry run).
	Proposed Outcome = iota
	// Committed means the selected proposal was applied and kept.
	Committed
	// Recovered means the proposal regressed the file and it was restored.
	Recovered
	// Skipped means nothing was applied; Entry.Skip says why.
	Skipped
	// Failed means an error stopped the diagnostic; Entry.Err holds it.
	Failed
)

var outcomeNames = [...]string{
	Proposed:  "proposed",
	Committed: "committed",
	Recovered: "recovered",
	Skipped:   "skipped",
	Failed:    "failed",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// SkipReason explains why a diagnostic was skipped.
type SkipReason int

const (
	// SkipNone is the zero value of entries that were not skipped.
	SkipNone SkipReason = iota

	// SkipExcluded means the file is outside the project include globs.
	SkipExcluded

	// SkipNoContext means the location could not be resolved to a node.
	SkipNoContext

	// SkipNoProposal means no strategy produced a valid proposal.
	SkipNoProposal

	// SkipSafety means every proposal needs a weaker safety policy.
	SkipSafety

	// SkipStale means the file was changed earlier in the same iteration.
	SkipStale

	// SkipConflict means the selected proposal overlaps a more confident one
	// applied to the same file.
	SkipConflict

	// SkipNotRequested means no proposal has the ID the run is limited to.
	SkipNotRequested
)

// String returns a human-readable description of the skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return ""
	case SkipExcluded:
		return "excluded by project globs"
	case SkipNoContext:
		return "no syntax node at the location"
	case SkipNoProposal:
		return "no proposal"
	case SkipSafety:
		return "below safety policy"
	case SkipStale:
		return "file changed in this iteration"
	case SkipConflict:
		return "overlaps a more confident fix"
	case SkipNotRequested:
		return "not the requested fix"
	default:
		return "unknown reason"
	}
}

// Entry records what happened to one diagnostic.
type Entry struct {
	Path       string
	Diagnostic diag.Diagnostic
	Outcome    Outcome
	Skip       SkipReason
	// Proposal is the selected proposal, Proposals every one generated.
	Proposal  *proposal.Proposal
	Proposals []proposal.Proposal
	// Result is set once the applier ran.
	Result    *apply.Result
	Detail    string
	Err       error
	Iteration int
}

// Report is the outcome of a run.
type Report struct {
	Entries    []Entry
	Iterations int
	// Remaining is the number of actionable diagnostics of the last scan;
	// only RunIterative sets it.
	Remaining int
	DryRun    bool
	Timings   observ.Report
}

// Count returns the number of entries with outcome o.
func (r *Report) Count(o Outcome) int {
	if r == nil {
		return 0
	}
	n := 0
	for i := range r.Entries {
		if r.Entries[i].Outcome == o {
			n++
		}
	}
	return n
}

// OK reports whether no diagnostic failed and every regression was restored.
func (r *Report) OK() bool {
	return r.Count(Failed) == 0
}

// matchedTarget reports whether some entry had a proposal with the ID the
// run was limited to, whether or not the policy let it through.
func (r *Report) matchedTarget() bool {
	for i := range r.Entries {
		e := &r.Entries[i]
		if len(e.Proposals) > 0 && e.Skip != SkipNotRequested {
			return true
		}
	}
	return false
}

// Summary is a one-line count of the outcomes.
func (r *Report) Summary() string {
	if r != nil && r.DryRun {
		return fmt.Sprintf("%d proposed, %d skipped, %d failed",
			r.Count(Proposed), r.Count(Skipped), r.Count(Failed))
	}
	return fmt.Sprintf("%d committed, %d recovered, %d skipped, %d failed",
		r.Count(Committed), r.Count(Recovered), r.Count(Skipped), r.Count(Failed))
}

func (r *Report) merge(o *Report) {
	if o == nil {
		return
	}
	r.Entries = append(r.Entries, o.Entries...)
	r.Iterations = max(r.Iterations, o.Iterations)
}

// sortEntries orders by iteration, path and location.
func (r *Report) sortEntries() {
	sort.SliceStable(r.Entries, func(i, j int) bool {
		a, b := r.Entries[i], r.Entries[j]
		if a.Iteration != b.Iteration {
			return a.Iteration < b.Iteration
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		la, lb := a.Diagnostic.Location, b.Diagnostic.Location
		if la.Line != lb.Line {
			return la.Line < lb.Line
		}
		return la.Column < lb.Column
	})
}

type entryPayload struct {
	Path       string  `json:"path"`
	Line       int     `json:"line"`
	Column     int     `json:"column"`
	Code       string  `json:"code,omitempty"`
	Message    string  `json:"message"`
	Outcome    string  `json:"outcome"`
	Skip       string  `json:"skip,omitempty"`
	Proposal   string  `json:"proposal,omitempty"`
	Strategy   string  `json:"strategy,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Safety     string  `json:"safety,omitempty"`
	Backup     string  `json:"backup,omitempty"`
	Detail     string  `json:"detail,omitempty"`
	Error      string  `json:"error,omitempty"`
	Iteration  int     `json:"iteration"`
}

type reportPayload struct {
	DryRun     bool           `json:"dry_run"`
	Iterations int            `json:"iterations"`
	Remaining  int            `json:"remaining"`
	Summary    string         `json:"summary"`
	Entries    []entryPayload `json:"entries"`
	Timings    observ.Report  `json:"timings"`
}

// WriteJSON writes the report as one indented JSON document.
func (r *Report) WriteJSON(w io.Writer) error {
	payload := reportPayload{
		DryRun:     r.DryRun,
		Iterations: r.Iterations,
		Remaining:  r.Remaining,
		Summary:    r.Summary(),
		Entries:    make([]entryPayload, 0, len(r.Entries)),
		Timings:    r.Timings,
	}
	for _, e := range r.Entries {
		ep := entryPayload{
			Path:      e.Path,
			Line:      e.Diagnostic.Location.Line,
			Column:    e.Diagnostic.Location.Column,
			Code:      e.Diagnostic.Code,
			Message:   e.Diagnostic.Message,
			Outcome:   e.Outcome.String(),
			Skip:      e.Skip.String(),
			Detail:    e.Detail,
			Iteration: e.Iteration,
		}
		if p := e.Proposal; p != nil {
			ep.Proposal = p.Title()
			ep.Confidence = p.Confidence
			ep.Safety = p.Safety.String()
			if p.Strategy != nil {
				ep.Strategy = p.Strategy.Kind().String()
			}
		}
		if e.Result != nil {
			ep.Backup = e.Result.Backup
		}
		if e.Err != nil {
			ep.Error = e.Err.Error()
		}
		payload.Entries = append(payload.Entries, ep)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
