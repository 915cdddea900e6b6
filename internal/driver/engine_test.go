package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rectify/internal/apply"
	"rectify/internal/backup"
	"rectify/internal/diag"
	"rectify/internal/diagnoser"
	"rectify/internal/docs"
	"rectify/internal/fix"
	"rectify/internal/observ"
	"rectify/internal/proposal"
	"rectify/internal/templates"
	"rectify/internal/validate"
)

const mainRS = "fn main() {\n    let x = 5;\n    let s = \"x\".to_string();\n    s.lenght();\n}\n"

type fixture struct {
	dir     string
	path    string
	script  *diagnoser.Script
	metrics *observ.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "src", "main.rs")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(mainRS), 0o644); err != nil {
		t.Fatal(err)
	}
	return &fixture{dir: dir, path: path, script: diagnoser.NewScript(), metrics: observ.NewRegistry()}
}

func (f *fixture) methodTypo() diag.Diagnostic {
	return diag.New("E0599", diag.SevError, "no method named `lenght` found for struct `String` in the current scope",
		diag.Location{File: f.path, Line: 4, Column: 7, EndLine: 4, EndColumn: 13})
}

func (f *fixture) unusedX() diag.Diagnostic {
	return diag.New("unused_variables", diag.SevWarning, "unused variable: `x`",
		diag.Location{File: f.path, Line: 2, Column: 9, EndLine: 2, EndColumn: 10})
}

func (f *fixture) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	b, err := backup.New(f.dir, "")
	if err != nil {
		t.Fatal(err)
	}
	tc, err := templates.New()
	if err != nil {
		t.Fatal(err)
	}
	a := apply.New(f.script, b, apply.WithMetrics(f.metrics), apply.WithTemplates(tc))
	gen := proposal.New(proposal.WithValidator(validate.New()), proposal.WithMetrics(f.metrics), proposal.WithTemplates(tc))
	base := []Option{WithApplier(a), WithGenerator(gen), WithDocs(stringDocs()), WithJobs(2)}
	return New(f.script, append(base, opts...)...)
}

func (f *fixture) read(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func stringDocs() docs.Provider {
	return docs.NewStatic(&docs.CachedDocs{
		TypeName: "String",
		Methods: []docs.Method{
			{Name: "len", Signature: "pub fn len(&self) -> usize"},
			{Name: "push_str", Signature: "pub fn push_str(&mut self, string: &str)"},
		},
	})
}

func entryFor(t *testing.T, rep *Report, code string) Entry {
	t.Helper()
	for _, e := range rep.Entries {
		if e.Diagnostic.Code == code {
			return e
		}
	}
	t.Fatalf("no entry for %s in %+v", code, rep.Entries)
	return Entry{}
}

func TestDryRunHonoursPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		method Outcome
	}{
		{"safe only", Policy{}, Skipped},
		{"review allowed", Policy{AllowReview: true}, Proposed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := f.engine(t, WithDryRun(true), WithPolicy(tt.policy))

			rep, err := e.Run(context.Background(), []diag.Diagnostic{f.methodTypo(), f.unusedX()})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			unused := entryFor(t, rep, "unused_variables")
			if unused.Outcome != Proposed || unused.Proposal == nil || unused.Proposal.Corrected != "let _x = 5;" {
				t.Fatalf("unused entry = %+v", unused)
			}
			method := entryFor(t, rep, "E0599")
			if method.Outcome != tt.method {
				t.Fatalf("method outcome = %v, want %v", method.Outcome, tt.method)
			}
			if tt.method == Skipped {
				if method.Skip != SkipSafety || !strings.HasPrefix(method.Detail, "safety is ") {
					t.Fatalf("skip = %v %q", method.Skip, method.Detail)
				}
				if len(method.Proposals) == 0 {
					t.Fatal("rejected proposals not reported")
				}
			} else if method.Proposal.Corrected != "s.len()" {
				t.Fatalf("method proposal = %q", method.Proposal.Corrected)
			}
			if got := f.read(t); got != mainRS {
				t.Fatalf("dry run changed the file:\n%s", got)
			}
			if f.script.Calls(f.path) != 0 {
				t.Fatal("dry run scanned")
			}
		})
	}
}

func TestCommitSkipsStaleDiagnostics(t *testing.T) {
	f := newFixture(t)
	f.script.Push("", diagnoser.Counts(1, 1, "no method named `lenght`"), diagnoser.Counts(0, 1))
	e := f.engine(t, WithPolicy(Policy{AllowReview: true}))

	rep, err := e.Run(context.Background(), []diag.Diagnostic{f.unusedX(), f.methodTypo()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// errors are handled before warnings of the same file
	method := entryFor(t, rep, "E0599")
	if method.Outcome != Committed || method.Result == nil || method.Result.Backup == "" {
		t.Fatalf("method entry = %+v", method)
	}
	unused := entryFor(t, rep, "unused_variables")
	if unused.Outcome != Skipped || unused.Skip != SkipStale {
		t.Fatalf("unused entry = %+v", unused)
	}
	if got := f.read(t); !strings.Contains(got, "s.len();") || !strings.Contains(got, "let x = 5;") {
		t.Fatalf("file = %q", got)
	}
	if got := rep.Summary(); got != "1 committed, 0 recovered, 1 skipped, 0 failed" {
		t.Fatalf("summary = %q", got)
	}
}

func TestRunIterativeUntilClean(t *testing.T) {
	f := newFixture(t)
	f.script.
		PushDiagnostics(f.methodTypo(), f.unusedX()).
		PushDiagnostics(f.unusedX()).
		PushDiagnostics()
	f.script.Push("",
		diagnoser.Counts(1, 1, "no method named `lenght`"), diagnoser.Counts(0, 1),
		diagnoser.Counts(0, 1), diagnoser.Counts(0, 0))
	e := f.engine(t, WithPolicy(Policy{AllowReview: true}))

	rep, err := e.RunIterative(context.Background())
	if err != nil {
		t.Fatalf("RunIterative: %v", err)
	}
	if rep.Iterations != 2 || rep.Count(Committed) != 2 || rep.Remaining != 0 {
		t.Fatalf("iterations %d committed %d remaining %d", rep.Iterations, rep.Count(Committed), rep.Remaining)
	}
	want := "fn main() {\n    let _x = 5;\n    let s = \"x\".to_string();\n    s.len();\n}\n"
	if got := f.read(t); got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}
	if len(rep.Timings.Phases) != 5 {
		t.Fatalf("phases = %+v", rep.Timings.Phases)
	}
	if f.metrics.Commits() != 2 {
		t.Fatalf("metrics commits = %d", f.metrics.Commits())
	}
}

func TestRunIterativeStopsAtLimit(t *testing.T) {
	f := newFixture(t)
	// the same diagnostic keeps coming back; every pass commits
	f.script.PushDiagnostics(f.unusedX())
	f.script.Push("", diagnoser.Counts(0, 1), diagnoser.Counts(0, 0))
	e := f.engine(t, WithMaxIterations(1))

	rep, err := e.RunIterative(context.Background())
	if err != nil {
		t.Fatalf("RunIterative: %v", err)
	}
	if rep.Iterations != 1 || rep.Remaining != 1 {
		t.Fatalf("iterations %d remaining %d", rep.Iterations, rep.Remaining)
	}
}

func TestRunIterativeNothingToFix(t *testing.T) {
	f := newFixture(t)
	note := diag.New("", diag.SevNote, "some note", diag.Location{File: f.path, Line: 1, Column: 1})
	f.script.PushDiagnostics(note)
	e := f.engine(t)

	rep, err := e.RunIterative(context.Background())
	if !errors.Is(err, ErrNoDiagnostics) {
		t.Fatalf("err = %v, want ErrNoDiagnostics", err)
	}
	if len(rep.Entries) != 0 {
		t.Fatalf("entries = %+v", rep.Entries)
	}
}

func TestRegressionIsReportedAsRecovered(t *testing.T) {
	f := newFixture(t)
	f.script.Push("", diagnoser.Counts(1, 1, "no method named `lenght`"),
		diagnoser.Counts(2, 1, "no method named `lenght`", "mismatched types"))
	e := f.engine(t, WithPolicy(Policy{AllowReview: true}))

	rep, err := e.Run(context.Background(), []diag.Diagnostic{f.methodTypo()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	method := entryFor(t, rep, "E0599")
	if method.Outcome != Recovered || method.Detail == "" {
		t.Fatalf("entry = %+v", method)
	}
	if got := f.read(t); got != mainRS {
		t.Fatalf("file not restored: %q", got)
	}
	if !rep.OK() {
		t.Fatal("recovered regression counted as failure")
	}
}

func TestExcludedFiles(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, WithDryRun(true), WithFilter(func(string) bool { return false }))

	rep, err := e.Run(context.Background(), []diag.Diagnostic{f.unusedX()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Entries) != 1 || rep.Entries[0].Skip != SkipExcluded {
		t.Fatalf("entries = %+v", rep.Entries)
	}
}

func TestUnresolvableLocationSkipped(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, WithDryRun(true))
	d := diag.New("E0599", diag.SevError, "no method named `x`", diag.Location{File: f.path, Line: 99, Column: 1})

	rep, err := e.Run(context.Background(), []diag.Diagnostic{d})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := rep.Entries[0]; got.Outcome != Skipped || got.Skip != SkipNoContext {
		t.Fatalf("entry = %+v", got)
	}
}

func TestMissingFileFails(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, WithDryRun(true))
	d := diag.New("E0599", diag.SevError, "no method", diag.Location{File: filepath.Join(f.dir, "gone.rs"), Line: 1, Column: 1})

	rep, err := e.Run(context.Background(), []diag.Diagnostic{d})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := rep.Entries[0]; got.Outcome != Failed || got.Err == nil {
		t.Fatalf("entry = %+v", got)
	}
	if rep.OK() {
		t.Fatal("failure not reflected in OK")
	}
}

func TestRunWithoutApplier(t *testing.T) {
	e := New(diagnoser.NewScript())
	if _, err := e.Run(context.Background(), nil); !errors.Is(err, errNoApplier) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, WithDryRun(true))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := e.Run(ctx, []diag.Diagnostic{f.unusedX()})
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if rep.Entries[0].Outcome != Failed {
		t.Fatalf("entry = %+v", rep.Entries[0])
	}
}

func TestEventsReachSink(t *testing.T) {
	f := newFixture(t)
	ch := make(chan Event, 64)
	e := f.engine(t, WithDryRun(true), WithSink(ChannelSink{Ch: ch}))

	if _, err := e.Run(context.Background(), []diag.Diagnostic{f.unusedX()}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(ch)
	var statuses []Status
	for evt := range ch {
		if evt.File != f.path {
			t.Fatalf("event for %q", evt.File)
		}
		statuses = append(statuses, evt.Status)
	}
	if len(statuses) < 3 || statuses[0] != StatusQueued || statuses[len(statuses)-1] != StatusDone {
		t.Fatalf("statuses = %v", statuses)
	}
}

func TestPolicyMaxSafety(t *testing.T) {
	tests := []struct {
		p    Policy
		want fix.Safety
	}{
		{Policy{}, fix.Safe},
		{Policy{AllowReview: true}, fix.RequiresReview},
		{Policy{AllowReview: true, AllowUnsafe: true}, fix.Unsafe},
	}
	for _, tt := range tests {
		if got := tt.p.MaxSafety(); got != tt.want {
			t.Errorf("%+v: got %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, WithDryRun(true))
	rep, err := e.Run(context.Background(), []diag.Diagnostic{f.unusedX()})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := rep.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got struct {
		DryRun  bool   `json:"dry_run"`
		Summary string `json:"summary"`
		Entries []struct {
			Outcome  string `json:"outcome"`
			Proposal string `json:"proposal"`
			Safety   string `json:"safety"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.DryRun || got.Summary != "1 proposed, 0 skipped, 0 failed" || len(got.Entries) != 1 {
		t.Fatalf("report = %+v", got)
	}
	if got.Entries[0].Outcome != "proposed" || got.Entries[0].Safety != "safe" || got.Entries[0].Proposal == "" {
		t.Fatalf("entry = %+v", got.Entries[0])
	}
}

func TestApplyAllCommitsEveryFixOfAFile(t *testing.T) {
	f := newFixture(t)
	f.script.Push("",
		diagnoser.Counts(1, 1, "no method named `lenght`"), diagnoser.Counts(0, 1),
		diagnoser.Counts(0, 1), diagnoser.Counts(0, 0))
	e := f.engine(t, WithPolicy(Policy{AllowReview: true, Mode: fix.ApplyModeAll}))

	rep, err := e.Run(context.Background(), []diag.Diagnostic{f.unusedX(), f.methodTypo()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, code := range []string{"E0599", "unused_variables"} {
		if got := entryFor(t, rep, code); got.Outcome != Committed {
			t.Fatalf("%s entry = %+v", code, got)
		}
	}
	want := strings.Replace(strings.Replace(mainRS, "s.lenght()", "s.len()", 1), "let x = 5;", "let _x = 5;", 1)
	if got := f.read(t); got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}
	if f.script.Calls(f.path) != 4 {
		t.Fatalf("scans = %d, want 4", f.script.Calls(f.path))
	}
}

func TestApplyAllSkipsOverlappingFixes(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, WithDryRun(true), WithPolicy(Policy{AllowReview: true, Mode: fix.ApplyModeAll}))

	rep, err := e.Run(context.Background(), []diag.Diagnostic{f.methodTypo(), f.methodTypo(), f.unusedX()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var proposed, conflicts int
	for _, en := range rep.Entries {
		switch {
		case en.Outcome == Proposed:
			proposed++
		case en.Skip == SkipConflict:
			conflicts++
			if en.Detail != "overlaps a more confident fix" {
				t.Errorf("conflict detail = %q", en.Detail)
			}
		default:
			t.Errorf("unexpected entry %+v", en)
		}
	}
	if proposed != 2 || conflicts != 1 {
		t.Fatalf("proposed %d, conflicts %d", proposed, conflicts)
	}
}

func proposalIDFor(t *testing.T, f *fixture, d diag.Diagnostic) string {
	t.Helper()
	rep, err := f.engine(t, WithDryRun(true), WithPolicy(Policy{AllowReview: true})).Run(context.Background(), []diag.Diagnostic{d})
	if err != nil {
		t.Fatal(err)
	}
	p := rep.Entries[0].Proposal
	if p == nil || p.ID == "" {
		t.Fatalf("no proposal for %s", d.Code)
	}
	return p.ID
}

func TestApplyByID(t *testing.T) {
	f := newFixture(t)
	id := proposalIDFor(t, f, f.unusedX())
	f.script.Push("", diagnoser.Counts(1, 1, "no method named `lenght`"), diagnoser.Counts(1, 0))
	e := f.engine(t, WithPolicy(Policy{Mode: fix.ApplyModeID, TargetID: id}))

	rep, err := e.Run(context.Background(), []diag.Diagnostic{f.methodTypo(), f.unusedX()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if method := entryFor(t, rep, "E0599"); method.Outcome != Skipped || method.Skip != SkipNotRequested {
		t.Fatalf("method entry = %+v", method)
	}
	unused := entryFor(t, rep, "unused_variables")
	if unused.Outcome != Committed || unused.Proposal.ID != id {
		t.Fatalf("unused entry = %+v", unused)
	}
	if got := f.read(t); !strings.Contains(got, "let _x = 5;") || !strings.Contains(got, "s.lenght()") {
		t.Fatalf("file = %q", got)
	}
}

func TestApplyByIDErrors(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)
		e := f.engine(t, WithDryRun(true), WithPolicy(Policy{Mode: fix.ApplyModeID, TargetID: "000000000000"}))
		rep, err := e.Run(context.Background(), []diag.Diagnostic{f.methodTypo(), f.unusedX()})
		if !errors.Is(err, ErrUnknownFix) || rep == nil {
			t.Fatalf("err = %v", err)
		}
		if rep.Count(Proposed) != 0 {
			t.Fatalf("report = %+v", rep.Entries)
		}
	})
	t.Run("below policy", func(t *testing.T) {
		f := newFixture(t)
		id := proposalIDFor(t, f, f.methodTypo())
		e := f.engine(t, WithDryRun(true), WithPolicy(Policy{Mode: fix.ApplyModeID, TargetID: id}))
		rep, err := e.Run(context.Background(), []diag.Diagnostic{f.methodTypo()})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if m := entryFor(t, rep, "E0599"); m.Skip != SkipSafety || m.Detail != "safety is requires-review" {
			t.Fatalf("method entry = %+v", m)
		}
	})
}
