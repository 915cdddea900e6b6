package apply

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"rectify/internal/backup"
	"rectify/internal/diag"
	"rectify/internal/diagnoser"
	"rectify/internal/failure"
	"rectify/internal/fix"
	"rectify/internal/observ"
	"rectify/internal/proposal"
	"rectify/internal/source"
	"rectify/internal/templates"
)

const mainRS = "fn main() {\n    let s = String::new();\n    s.lenght();\n}\n"

type fixture struct {
	dir     string
	path    string
	metrics *observ.Registry
	backups *backup.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rs")
	if err := os.WriteFile(path, []byte(mainRS), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := backup.New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{dir: dir, path: path, metrics: observ.NewRegistry(), backups: b}
}

func (f *fixture) applier(s Scanner, opts ...Option) *Applier {
	tc, _ := templates.New()
	opts = append([]Option{WithMetrics(f.metrics), WithTemplates(tc)}, opts...)
	return New(s, f.backups, opts...)
}

func (f *fixture) read(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// replace builds a proposal rewriting the first old in content to repl.
func replace(t *testing.T, path, content, old, repl string) proposal.Proposal {
	t.Helper()
	i := strings.Index(content, old)
	if i < 0 {
		t.Fatalf("%q not in content", old)
	}
	span := source.Span{Start: uint32(i), End: uint32(i + len(old))}
	return proposal.Proposal{
		ID:         old + "->" + repl,
		Path:       path,
		Original:   old,
		Corrected:  repl,
		Edits:      []fix.Edit{fix.Replace(span, repl, old)},
		Confidence: 0.95,
		Strategy:   proposal.MethodNameCorrection{Original: old, Suggested: repl, Similarity: 0.9},
		Safety:     fix.Safe,
	}
}

func TestRegressionIsRestored(t *testing.T) {
	f := newFixture(t)
	before, _, err := backup.FileChecksum(f.path)
	if err != nil {
		t.Fatal(err)
	}
	s := diagnoser.NewScript().Push(f.path,
		diagnoser.Counts(1, 0, "no method named `lenght` found"),
		diagnoser.Counts(2, 0, "no method named `lenghtt` found", "unused"),
	)
	a := f.applier(s)

	res, err := a.Apply(context.Background(), replace(t, f.path, mainRS, "lenght", "lenghtt"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Outcome != Recovered || !res.RecoveryTriggered || !res.RecoverySuccessful {
		t.Fatalf("result = %+v", res)
	}
	after, _, _ := backup.FileChecksum(f.path)
	if after != before {
		t.Fatalf("file not restored: %s != %s", after, before)
	}
	if f.metrics.Commits() != 0 || f.metrics.Recoveries() != 1 {
		t.Fatalf("commits = %d, recoveries = %d", f.metrics.Commits(), f.metrics.Recoveries())
	}
	if res.Backup == "" {
		t.Fatal("backup directory not reported")
	}
}

func TestImprovementIsCommitted(t *testing.T) {
	f := newFixture(t)
	s := diagnoser.NewScript().Push(f.path,
		diagnoser.Counts(1, 0, "no method named `lenght` found"),
		diagnoser.Counts(0, 0),
	)
	a := f.applier(s)

	res, err := a.Apply(context.Background(), replace(t, f.path, mainRS, "lenght", "len"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Outcome != Committed || res.RecoveryTriggered {
		t.Fatalf("result = %+v", res)
	}
	if got := f.read(t); !strings.Contains(got, "s.len();") {
		t.Fatalf("edit not kept:\n%s", got)
	}
	snap := f.metrics.Snapshot()
	if snap.Committed != 1 || snap.CommitsBy["method-name"] != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if res.Pre.ErrorCount != 1 || res.Post.ErrorCount != 0 {
		t.Fatalf("pre/post = %+v / %+v", res.Pre, res.Post)
	}
	if res.Duration <= 0 {
		t.Fatalf("duration not recorded")
	}
}

func TestNewErrorOverWarning(t *testing.T) {
	f := newFixture(t)
	original := f.read(t)
	s := diagnoser.NewScript().Push(f.path,
		diagnoser.Counts(0, 1),
		diagnoser.Counts(1, 0, "mismatched types"),
	)
	a := f.applier(s)

	res, err := a.Apply(context.Background(), replace(t, f.path, mainRS, "String::new()", "5"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.RecoverySuccessful || res.Outcome != Recovered {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Reason, "errors 0 -> 1") {
		t.Fatalf("reason = %q", res.Reason)
	}
	if got := f.read(t); got != original {
		t.Fatalf("file changed:\n%s", got)
	}
}

// hangAfterFirst answers the first scan and blocks on every later one.
type hangAfterFirst struct {
	mu    sync.Mutex
	calls int
}

func (h *hangAfterFirst) Scan(ctx context.Context, path string) (diag.FileDiagnostics, error) {
	h.mu.Lock()
	h.calls++
	n := h.calls
	h.mu.Unlock()
	if n == 1 {
		return diagnoser.Counts(1, 0, "no method named `lenght` found"), nil
	}
	<-ctx.Done()
	return diag.FileDiagnostics{}, ctx.Err()
}

func TestScanTimeoutRestores(t *testing.T) {
	f := newFixture(t)
	a := f.applier(&hangAfterFirst{}, WithScanTimeout(30*time.Millisecond))

	res, err := a.Apply(context.Background(), replace(t, f.path, mainRS, "lenght", "len"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.TimedOut || res.Outcome != Recovered {
		t.Fatalf("result = %+v", res)
	}
	if got := f.read(t); got != mainRS {
		t.Fatalf("file not restored:\n%s", got)
	}
	if snap := f.metrics.Snapshot(); snap.ScanTimeouts != 1 || snap.Scans != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestGuardMismatchFails(t *testing.T) {
	f := newFixture(t)
	s := diagnoser.NewScript().Push(f.path, diagnoser.Counts(1, 0))
	a := f.applier(s)

	p := replace(t, f.path, mainRS, "lenght", "len")
	p.Edits[0].OldText = "length"
	res, err := a.Apply(context.Background(), p)
	if !errors.Is(err, ErrGuardMismatch) {
		t.Fatalf("err = %v, want guard mismatch", err)
	}
	if res.Outcome != Failed || res.RecoveryTriggered {
		t.Fatalf("result = %+v", res)
	}
	if got := f.read(t); got != mainRS {
		t.Fatalf("file changed:\n%s", got)
	}
	if s.Calls(f.path) != 1 {
		t.Fatalf("post-edit scan ran after a failed edit")
	}
}

func TestPreScanFailure(t *testing.T) {
	f := newFixture(t)
	a := f.applier(diagnoser.NewScript())

	res, err := a.Apply(context.Background(), replace(t, f.path, mainRS, "lenght", "len"))
	if !errors.Is(err, diagnoser.ErrExhausted) || res.Outcome != Failed {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if got := f.read(t); got != mainRS {
		t.Fatalf("file changed")
	}
}

func TestEmptyProposal(t *testing.T) {
	f := newFixture(t)
	a := f.applier(diagnoser.NewScript())
	_, err := a.Apply(context.Background(), proposal.Proposal{Path: f.path})
	if !failure.Is(err, failure.KindGeneration) {
		t.Fatalf("err = %v, want generation failure", err)
	}
}

// tracker records how many scans run at once, per file and overall.
type tracker struct {
	mu        sync.Mutex
	active    map[string]int
	total     int
	maxPer    int
	maxTotal  int
	scanDelay time.Duration
}

func (tr *tracker) Scan(ctx context.Context, path string) (diag.FileDiagnostics, error) {
	tr.mu.Lock()
	tr.active[path]++
	tr.total++
	tr.maxPer = max(tr.maxPer, tr.active[path])
	tr.maxTotal = max(tr.maxTotal, tr.total)
	tr.mu.Unlock()

	select {
	case <-time.After(tr.scanDelay):
	case <-ctx.Done():
	}

	tr.mu.Lock()
	tr.active[path]--
	tr.total--
	tr.mu.Unlock()
	return diagnoser.Counts(0, 0), ctx.Err()
}

// Calls to the same file hold its lock across both scans, so per-file
// concurrency stays at one while two files overlap.
func TestSameFileSerialized(t *testing.T) {
	dir := t.TempDir()
	content := "aaaa bbbb cccc\n"
	var ps []proposal.Proposal
	for _, name := range []string{"a.rs", "b.rs"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		ps = append(ps,
			replace(t, path, content, "aaaa", "AAAA"),
			replace(t, path, content, "bbbb", "BBBB"),
			replace(t, path, content, "cccc", "CCCC"),
		)
	}
	b, err := backup.New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	tr := &tracker{active: make(map[string]int), scanDelay: 20 * time.Millisecond}
	reg := observ.NewRegistry()
	a := New(tr, b, WithMetrics(reg))

	results := a.ApplyBatch(context.Background(), ps, len(ps))
	for i, res := range results {
		if res.Outcome != Committed {
			t.Fatalf("result %d = %+v", i, res)
		}
		if res.ProposalID != ps[i].ID {
			t.Fatalf("result %d out of order: %s", i, res.ProposalID)
		}
	}
	if tr.maxPer != 1 {
		t.Fatalf("same file scanned concurrently: %d", tr.maxPer)
	}
	if tr.maxTotal < 2 {
		t.Fatalf("different files never overlapped")
	}
	for _, name := range []string{"a.rs", "b.rs"} {
		data, _ := os.ReadFile(filepath.Join(dir, name))
		if string(data) != "AAAA BBBB CCCC\n" {
			t.Fatalf("%s = %q", name, data)
		}
	}
	if reg.Commits() != uint64(len(ps)) {
		t.Fatalf("commits = %d", reg.Commits())
	}
}

func TestApplyBatchCancelled(t *testing.T) {
	f := newFixture(t)
	a := f.applier(diagnoser.NewScript().Push("", diagnoser.Counts(0, 0)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ps := []proposal.Proposal{
		replace(t, f.path, mainRS, "lenght", "len"),
		replace(t, f.path, mainRS, "String", "Vec"),
	}
	for i, res := range a.ApplyBatch(ctx, ps, 1) {
		if res.Outcome != Failed || !errors.Is(res.Err, context.Canceled) {
			t.Fatalf("result %d = %+v", i, res)
		}
	}
	if got := f.read(t); got != mainRS {
		t.Fatalf("file changed")
	}
	if len(a.ApplyBatch(context.Background(), nil, 4)) != 0 {
		t.Fatal("empty batch returned results")
	}
}

func TestShouldTriggerRecovery(t *testing.T) {
	tests := []struct {
		name string
		pre  diag.FileDiagnostics
		post diag.FileDiagnostics
		want bool
	}{
		{"unchanged", diagnoser.Counts(1, 2, "x"), diagnoser.Counts(1, 2, "x"), false},
		{"errors grew", diagnoser.Counts(1, 0, "x"), diagnoser.Counts(2, 0, "x", "y"), true},
		{"errors shrank", diagnoser.Counts(2, 0, "x", "y"), diagnoser.Counts(0, 0), false},
		{"warnings within factor", diagnoser.Counts(0, 2), diagnoser.Counts(0, 3), false},
		{"warnings past factor", diagnoser.Counts(0, 2), diagnoser.Counts(0, 4), true},
		{"first warning", diagnoser.Counts(0, 0), diagnoser.Counts(0, 1), true},
		{"critical error replaces another", diagnoser.Counts(1, 0, "x"), diagnoser.Counts(1, 0, "cannot find value `y` in this scope"), true},
		{"critical match ignores case", diagnoser.Counts(1, 0, "x"), diagnoser.Counts(1, 0, "Mismatched Types"), true},
		{"ordinary error replaces another", diagnoser.Counts(1, 0, "x"), diagnoser.Counts(1, 0, "unreachable pattern"), false},
		{"old critical error persists", diagnoser.Counts(1, 0, "mismatched types"), diagnoser.Counts(1, 0, "mismatched types"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldTriggerRecovery(tt.pre, tt.post, DefaultPolicy())
			if got != tt.want {
				t.Fatalf("got %v (%q), want %v", got, reason, tt.want)
			}
			if got == (reason == "") {
				t.Fatalf("reason %q inconsistent with %v", reason, got)
			}
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	p := Policy{CriticalPatterns: []string{"unreachable"}, WarningFactor: 3}
	if got, _ := ShouldTriggerRecovery(diagnoser.Counts(0, 2), diagnoser.Counts(0, 6), p); got {
		t.Fatal("6 warnings within factor 3 of 2")
	}
	if got, _ := ShouldTriggerRecovery(diagnoser.Counts(1, 0, "x"), diagnoser.Counts(1, 0, "unreachable pattern"), p); !got {
		t.Fatal("custom critical pattern ignored")
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		Failed:         "failed",
		Committed:      "committed",
		Recovered:      "recovered",
		RecoveryFailed: "recovery failed",
		Outcome(42):    "unknown",
	} {
		if o.String() != want {
			t.Errorf("%d = %q, want %q", o, o.String(), want)
		}
	}
}
