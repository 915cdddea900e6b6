package fix

import (
	"fmt"
	"sort"
)

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	// ApplyModeOnce selects the single best allowed candidate per file.
	ApplyModeOnce ApplyMode = iota
	// ApplyModeAll selects every allowed candidate that does not overlap a
	// more confident one. The result is sorted end of file first.
	ApplyModeAll
	// ApplyModeID selects the candidate with a given ID.
	ApplyModeID
)

// SelectOptions configures how candidates are selected.
type SelectOptions struct {
	Mode     ApplyMode
	TargetID string
	// MaxSafety is the strictest level that may be selected.
	MaxSafety Safety
}

// Candidate is one proposed fix of one diagnostic.
type Candidate struct {
	ID         string
	Title      string
	Path       string
	Edits      []Edit
	Safety     Safety
	Confidence float64
	// Order keeps the insertion order as a final tie-breaker.
	Order int
}

// SkippedFix captures a candidate that was not selected, with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Path   string
	Reason string
}

// SortCandidates orders candidates deterministically: by file, by position
// from the end of the file to its start (so applying them in order never
// invalidates the spans of later ones), by confidence (higher first), then by
// insertion order and ID.
func SortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		ci, cj := cands[i], cands[j]
		if ci.Path != cj.Path {
			return ci.Path < cj.Path
		}
		si, sj := firstStart(ci), firstStart(cj)
		if si != sj {
			return si > sj
		}
		if ci.Confidence != cj.Confidence {
			return ci.Confidence > cj.Confidence
		}
		if ci.Order != cj.Order {
			return ci.Order < cj.Order
		}
		return ci.ID < cj.ID
	})
}

func firstStart(c Candidate) uint32 {
	if len(c.Edits) == 0 {
		return 0
	}
	start := c.Edits[0].Span.Start
	for _, e := range c.Edits[1:] {
		start = min(start, e.Span.Start)
	}
	return start
}

// Select picks candidates according to opts. The input is sorted in place.
func Select(cands []Candidate, opts SelectOptions) ([]Candidate, []SkippedFix, error) {
	SortCandidates(cands)
	var selected []Candidate
	var skipped []SkippedFix
	skip := func(c Candidate, reason string) {
		skipped = append(skipped, SkippedFix{ID: c.ID, Title: c.Title, Path: c.Path, Reason: reason})
	}

	switch opts.Mode {
	case ApplyModeID:
		for _, c := range cands {
			if c.ID != opts.TargetID {
				continue
			}
			if !opts.MaxSafety.Allows(c.Safety) {
				skip(c, fmt.Sprintf("safety is %s", c.Safety))
				return nil, skipped, ErrNoFixes
			}
			return []Candidate{c}, nil, nil
		}
		return nil, []SkippedFix{{ID: opts.TargetID, Reason: "fix id not found"}}, ErrFixNotFound
	case ApplyModeAll:
		// конфликт решается в пользу более уверенного исправления
		byConfidence := append([]Candidate(nil), cands...)
		sort.SliceStable(byConfidence, func(i, j int) bool {
			return byConfidence[i].Confidence > byConfidence[j].Confidence
		})
		taken := make(map[string][]Edit)
		for _, c := range byConfidence {
			switch {
			case len(c.Edits) == 0:
				skip(c, "fix has no edits")
			case !opts.MaxSafety.Allows(c.Safety):
				skip(c, fmt.Sprintf("safety is %s", c.Safety))
			case Conflicts(taken[c.Path], c.Edits):
				skip(c, "overlaps a more confident fix")
			default:
				selected = append(selected, c)
				taken[c.Path] = append(taken[c.Path], c.Edits...)
			}
		}
		SortCandidates(selected)
	case ApplyModeOnce:
		best := make(map[string]int)
		for _, c := range cands {
			switch {
			case len(c.Edits) == 0:
				skip(c, "fix has no edits")
				continue
			case !opts.MaxSafety.Allows(c.Safety):
				skip(c, fmt.Sprintf("safety is %s", c.Safety))
				continue
			}
			i, seen := best[c.Path]
			if !seen {
				best[c.Path] = len(selected)
				selected = append(selected, c)
				continue
			}
			if c.Confidence > selected[i].Confidence {
				skip(selected[i], "a more confident fix was selected for this file")
				selected[i] = c
				continue
			}
			skip(c, "a more confident fix was selected for this file")
		}
	}
	if len(selected) == 0 {
		return nil, skipped, ErrNoFixes
	}
	return selected, skipped, nil
}
