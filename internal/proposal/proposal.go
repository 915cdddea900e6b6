package proposal

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"rectify/internal/fix"
)

// Proposal is one validated, ranked correction of a diagnostic.
type Proposal struct {
	ID string
	// Path is the file the edits apply to.
	Path string
	// Original is the text of the unit being corrected and Corrected its
	// replacement. For fragment proposals both describe the edits only.
	Original   string
	Corrected  string
	Edits      []fix.Edit
	Confidence float64
	Strategy   Strategy
	Safety     fix.Safety
	// DocSource names the documentation provider that backed the proposal.
	DocSource string
	// Template is the conversion template the proposal was built from.
	Template string
	// Metadata holds validation warnings ("warnings") and strategy details.
	Metadata map[string]string
	// Delete marks a proposal that only removes code.
	Delete bool
	// Fragment marks edits that do not form a grammatical unit on their own;
	// they were validated by re-parsing the whole edited file.
	Fragment bool
}

// Title is a one-line summary for reports.
func (p Proposal) Title() string {
	if p.Strategy == nil {
		return p.Corrected
	}
	return p.Strategy.Describe()
}

// Candidate converts p for fix.Select.
func (p Proposal) Candidate(order int) fix.Candidate {
	return fix.Candidate{
		ID:         p.ID,
		Title:      p.Title(),
		Path:       p.Path,
		Edits:      p.Edits,
		Safety:     p.Safety,
		Confidence: p.Confidence,
		Order:      order,
	}
}

// proposalID is a short digest of the path and the edits, stable across runs.
func proposalID(path string, edits []fix.Edit) string {
	h := sha256.New()
	h.Write([]byte(path))
	for _, e := range edits {
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatUint(uint64(e.Span.Start), 10)))
		h.Write([]byte{':'})
		h.Write([]byte(strconv.FormatUint(uint64(e.Span.End), 10)))
		h.Write([]byte{0})
		h.Write([]byte(e.NewText))
	}
	return hex.EncodeToString(h.Sum(nil)[:6])
}

// SafeConfidence is the lowest confidence classified as fix.Safe.
const SafeConfidence = 0.9

// Classify returns the safety of a proposal with the given confidence; floor
// is the strictest level the strategy declares and always wins.
func Classify(confidence float64, floor fix.Safety) fix.Safety {
	s := fix.RequiresReview
	if confidence >= SafeConfidence {
		s = fix.Safe
	}
	return fix.Stricter(s, floor)
}
