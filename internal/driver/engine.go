// Package driver runs the fix pipeline end to end: it groups diagnostics by
// file, builds their AST contexts, generates proposals, selects one per
// diagnostic under the safety policy and applies it through the regression
// guard, repeating on fresh diagnostics until nothing more is committed.
package driver

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"rectify/internal/apply"
	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/docs"
	"rectify/internal/failure"
	"rectify/internal/fix"
	"rectify/internal/observ"
	"rectify/internal/proposal"
	"rectify/internal/trace"
)

const component = "driver"

// DefaultMaxIterations bounds RunIterative.
const DefaultMaxIterations = 3

// ErrNoDiagnostics is returned when a scan reports nothing to fix.
var ErrNoDiagnostics = errors.New("driver: no actionable diagnostics")

var errNoApplier = errors.New("driver: no applier configured")

// Source supplies the project-wide diagnostics of one iteration.
type Source interface {
	Diagnostics(ctx context.Context) ([]diag.Diagnostic, error)
}

// ErrUnknownFix is returned when Policy.TargetID matches no proposal.
var ErrUnknownFix = errors.New("driver: no proposal has the requested id")

// Policy bounds the safety of the proposals the engine applies and how many
// of them are applied to one file per pass.
type Policy struct {
	AllowReview bool
	AllowUnsafe bool
	// Mode is fix.ApplyModeOnce (one proposal per file, the rest stale),
	// fix.ApplyModeAll (every proposal that does not overlap a more
	// confident one) or fix.ApplyModeID (only the proposal TargetID).
	Mode     fix.ApplyMode
	TargetID string
}

// MaxSafety returns the weakest safety level the policy admits.
func (p Policy) MaxSafety() fix.Safety {
	switch {
	case p.AllowUnsafe:
		return fix.Unsafe
	case p.AllowReview:
		return fix.RequiresReview
	}
	return fix.Safe
}

// Engine orchestrates one fix run.
type Engine struct {
	source    Source
	builder   *astctx.Builder
	generator *proposal.Generator
	applier   *apply.Applier
	docs      docs.Provider
	policy    Policy
	jobs      int
	maxIter   int
	dryRun    bool
	accept    func(path string) bool
	sink      Sink
}

// Option configures an Engine.
type Option func(*Engine)

// WithBuilder replaces the AST context builder.
func WithBuilder(b *astctx.Builder) Option { return func(e *Engine) { e.builder = b } }

// WithGenerator replaces the proposal generator.
func WithGenerator(g *proposal.Generator) Option { return func(e *Engine) { e.generator = g } }

// WithApplier sets the applier; it is required unless the engine runs dry.
func WithApplier(a *apply.Applier) Option { return func(e *Engine) { e.applier = a } }

// WithDocs sets the documentation provider passed to the generator.
func WithDocs(p docs.Provider) Option { return func(e *Engine) { e.docs = p } }

// WithPolicy sets the safety policy.
func WithPolicy(p Policy) Option { return func(e *Engine) { e.policy = p } }

// WithJobs bounds the number of files processed at once; n <= 0 means
// GOMAXPROCS.
func WithJobs(n int) Option { return func(e *Engine) { e.jobs = n } }

// WithMaxIterations bounds RunIterative.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIter = n
		}
	}
}

// WithDryRun selects proposals without applying them.
func WithDryRun(dry bool) Option { return func(e *Engine) { e.dryRun = dry } }

// WithFilter keeps only files for which accept returns true; the others are
// reported as skipped.
func WithFilter(accept func(path string) bool) Option { return func(e *Engine) { e.accept = accept } }

// WithSink receives progress events.
func WithSink(s Sink) Option { return func(e *Engine) { e.sink = s } }

// New returns an Engine reading diagnostics from src.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{source: src, maxIter: DefaultMaxIterations}
	for _, opt := range opts {
		opt(e)
	}
	if e.builder == nil {
		e.builder = astctx.NewBuilder()
	}
	if e.generator == nil {
		e.generator = proposal.New()
	}
	if e.jobs <= 0 {
		e.jobs = runtime.GOMAXPROCS(0)
	}
	return e
}

func (e *Engine) emit(evt Event) {
	if e.sink != nil {
		e.sink.OnEvent(evt)
	}
}

// fileGroup holds the actionable diagnostics of one file, most severe first.
type fileGroup struct {
	path  string
	diags []diag.Diagnostic
}

// group drops notes and location-less diagnostics, and returns the excluded
// ones as skipped entries.
func (e *Engine) group(ds []diag.Diagnostic, iteration int) ([]fileGroup, []Entry) {
	byPath := make(map[string]*fileGroup)
	var excluded []Entry
	for _, d := range ds {
		if d.Level < diag.SevWarning || d.Location.File == "" || d.Location.Line <= 0 {
			continue
		}
		path := filepath.Clean(d.Location.File)
		if e.accept != nil && !e.accept(path) {
			excluded = append(excluded, Entry{
				Path: path, Diagnostic: d, Outcome: Skipped, Skip: SkipExcluded, Iteration: iteration,
			})
			continue
		}
		g, ok := byPath[path]
		if !ok {
			g = &fileGroup{path: path}
			byPath[path] = g
		}
		g.diags = append(g.diags, d)
	}

	files := make([]fileGroup, 0, len(byPath))
	for _, g := range byPath {
		slices.SortStableFunc(g.diags, func(a, b diag.Diagnostic) int {
			if c := cmp.Compare(b.Level, a.Level); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Location.Line, b.Location.Line); c != 0 {
				return c
			}
			return cmp.Compare(a.Location.Column, b.Location.Column)
		})
		files = append(files, *g)
	}
	slices.SortFunc(files, func(a, b fileGroup) int { return cmp.Compare(a.path, b.path) })
	return files, excluded
}

// Run handles ds once. Files are processed in parallel; the diagnostics of
// one file run in order, and after a commit the remaining ones are skipped
// as stale. ErrNoDiagnostics is returned when ds holds nothing actionable.
func (e *Engine) Run(ctx context.Context, ds []diag.Diagnostic) (*Report, error) {
	return e.run(ctx, ds, 1)
}

func (e *Engine) run(ctx context.Context, ds []diag.Diagnostic, iteration int) (*Report, error) {
	if !e.dryRun && e.applier == nil {
		return nil, errNoApplier
	}
	rep := &Report{DryRun: e.dryRun, Iterations: iteration}
	files, excluded := e.group(ds, iteration)
	rep.Entries = append(rep.Entries, excluded...)
	if len(files) == 0 {
		if len(excluded) == 0 {
			return rep, ErrNoDiagnostics
		}
		return rep, nil
	}

	ctx, span := trace.Start(ctx, trace.ScopeRun, "iteration")
	span.WithExtra("iteration", strconv.Itoa(iteration)).WithExtra("files", strconv.Itoa(len(files)))
	for _, f := range files {
		e.emit(Event{File: f.path, Stage: StageContext, Status: StatusQueued, Iteration: iteration})
	}

	// у каждой горутины свой индекс в results, мьютекс не нужен
	results := make([][]Entry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.jobs, len(files)))
	for i, f := range files {
		g.Go(func() error {
			results[i] = e.fixFile(gctx, f, iteration)
			return nil
		})
	}
	_ = g.Wait()

	for _, es := range results {
		rep.Entries = append(rep.Entries, es...)
	}
	rep.sortEntries()
	span.End(rep.Summary())
	if err := ctx.Err(); err != nil {
		return rep, failure.Wrap(component, "run", "", err)
	}
	if e.policy.Mode == fix.ApplyModeID && !rep.matchedTarget() {
		return rep, fmt.Errorf("%w: %s", ErrUnknownFix, e.policy.TargetID)
	}
	return rep, nil
}

func (e *Engine) fixFile(ctx context.Context, f fileGroup, iteration int) []Entry {
	ctx, span := trace.Start(trace.WithFile(ctx, f.path), trace.ScopeFile, "file")
	started := time.Now()

	var entries []Entry
	if e.policy.Mode == fix.ApplyModeAll {
		entries = e.fixAll(ctx, f, iteration)
	} else {
		entries = e.fixEach(ctx, f, iteration)
	}

	status := StatusDone
	for i := range entries {
		if entries[i].Outcome == Failed {
			status = StatusError
			break
		}
	}
	part := &Report{Entries: entries, DryRun: e.dryRun}
	e.emit(Event{
		File:      f.path,
		Stage:     StageApply,
		Status:    status,
		Iteration: iteration,
		Detail:    part.Summary(),
		Elapsed:   time.Since(started),
	})
	span.End(part.Summary())
	return entries
}

// fixEach handles the diagnostics of f in order. After a commit the rest
// are skipped as stale: their spans point into the old content.
func (e *Engine) fixEach(ctx context.Context, f fileGroup, iteration int) []Entry {
	entries := make([]Entry, 0, len(f.diags))
	committed := false
	for _, d := range f.diags {
		entry := Entry{Path: f.path, Diagnostic: d, Iteration: iteration}
		switch {
		case ctx.Err() != nil:
			entry.Outcome, entry.Err = Failed, failure.Wrap(component, "fix", f.path, ctx.Err())
		case committed:
			entry.Outcome, entry.Skip = Skipped, SkipStale
		default:
			dctx := trace.WithDiagnostic(ctx, d.Code)
			if e.propose(dctx, &entry) {
				e.commit(dctx, &entry)
			}
			committed = entry.Outcome == Committed
		}
		entries = append(entries, entry)
	}
	return entries
}

// fixAll selects a proposal for every diagnostic of f first, drops the ones
// overlapping a more confident selection and applies the rest from the end
// of the file to its start, so the spans of those not yet applied stay
// valid.
func (e *Engine) fixAll(ctx context.Context, f fileGroup, iteration int) []Entry {
	entries := make([]Entry, len(f.diags))
	var cands []fix.Candidate
	for i, d := range f.diags {
		entries[i] = Entry{Path: f.path, Diagnostic: d, Iteration: iteration}
		if err := ctx.Err(); err != nil {
			entries[i].Outcome, entries[i].Err = Failed, failure.Wrap(component, "fix", f.path, err)
			continue
		}
		if e.propose(trace.WithDiagnostic(ctx, d.Code), &entries[i]) {
			cands = append(cands, entries[i].Proposal.Candidate(i))
		}
	}
	if len(cands) == 0 {
		return entries
	}

	selected, skipped, _ := fix.Select(cands, fix.SelectOptions{Mode: fix.ApplyModeAll, MaxSafety: e.policy.MaxSafety()})
	chosen := make(map[int]bool, len(selected))
	for _, c := range selected {
		chosen[c.Order] = true
	}
	for _, c := range cands {
		if chosen[c.Order] {
			continue
		}
		entry := &entries[c.Order]
		entry.Outcome, entry.Skip = Skipped, SkipConflict
		for _, s := range skipped {
			if s.ID == c.ID {
				entry.Detail = s.Reason
				break
			}
		}
	}
	for _, c := range selected {
		entry := &entries[c.Order]
		e.commit(trace.WithDiagnostic(ctx, entry.Diagnostic.Code), entry)
	}
	return entries
}

// propose builds the context of entry, generates its proposals and selects
// one under the policy. It reports whether a proposal was selected; when
// not, the outcome of entry is filled in.
func (e *Engine) propose(ctx context.Context, entry *Entry) bool {
	path, d := entry.Path, entry.Diagnostic
	progress := func(stage Stage) {
		e.emit(Event{File: path, Stage: stage, Status: StatusWorking, Iteration: entry.Iteration, Diagnostic: d.ID})
	}

	progress(StageContext)
	c, err := e.builder.Build(ctx, path, d)
	if err != nil {
		if failure.Is(err, failure.KindNodeNotFound) || failure.Is(err, failure.KindParse) {
			entry.Outcome, entry.Skip, entry.Err = Skipped, SkipNoContext, err
			return false
		}
		entry.Outcome, entry.Err = Failed, err
		return false
	}

	progress(StageGenerate)
	ps, err := e.generator.Generate(ctx, c, e.docs)
	if err != nil {
		entry.Outcome, entry.Err = Failed, err
		return false
	}
	entry.Proposals = ps
	if len(ps) == 0 {
		entry.Outcome, entry.Skip = Skipped, SkipNoProposal
		return false
	}
	chosen, skip, reason := e.choose(ps)
	if chosen == nil {
		entry.Outcome, entry.Skip, entry.Detail = Skipped, skip, reason
		return false
	}
	entry.Proposal = chosen
	return true
}

// commit applies the selected proposal of entry, or only marks it proposed
// on a dry run.
func (e *Engine) commit(ctx context.Context, entry *Entry) {
	if e.dryRun {
		entry.Outcome = Proposed
		return
	}
	e.emit(Event{File: entry.Path, Stage: StageApply, Status: StatusWorking, Iteration: entry.Iteration, Diagnostic: entry.Diagnostic.ID})
	res, err := e.applier.Apply(ctx, *entry.Proposal)
	if res.Err == nil {
		res.Err = err
	}
	entry.Result = &res
	switch res.Outcome {
	case apply.Committed:
		entry.Outcome = Committed
	case apply.Recovered:
		entry.Outcome, entry.Detail = Recovered, res.Reason
	default:
		entry.Outcome, entry.Err = Failed, res.Err
		entry.Detail = res.Reason
		if res.Outcome == apply.RecoveryFailed {
			entry.Detail = fmt.Sprintf("%s; restore failed", res.Reason)
		}
	}
}

// choose picks the proposal the policy admits: the most confident one, or
// the one with Policy.TargetID. When none qualifies it returns why.
func (e *Engine) choose(ps []proposal.Proposal) (*proposal.Proposal, SkipReason, string) {
	cands := make([]fix.Candidate, len(ps))
	for i, p := range ps {
		cands[i] = p.Candidate(i)
	}
	opts := fix.SelectOptions{Mode: fix.ApplyModeOnce, MaxSafety: e.policy.MaxSafety()}
	if e.policy.Mode == fix.ApplyModeID {
		opts.Mode, opts.TargetID = fix.ApplyModeID, e.policy.TargetID
	}
	selected, skipped, err := fix.Select(cands, opts)
	if errors.Is(err, fix.ErrFixNotFound) {
		return nil, SkipNotRequested, ""
	}
	if err != nil {
		reason := err.Error()
		if len(skipped) > 0 {
			reason = skipped[0].Reason
		}
		return nil, SkipSafety, reason
	}
	for i := range ps {
		if ps[i].ID == selected[0].ID {
			return &ps[i], SkipNone, ""
		}
	}
	return nil, SkipSafety, "selected fix not found"
}

// RunIterative scans, fixes and rescans until a pass commits nothing, no
// actionable diagnostic is left or the iteration limit is reached. A dry
// run makes a single pass. ErrNoDiagnostics is returned when the first
// scan is already clean.
func (e *Engine) RunIterative(ctx context.Context) (*Report, error) {
	timer := observ.NewTimer()
	total := &Report{DryRun: e.dryRun}
	defer func() { total.Timings = timer.Report() }()

	limit := e.maxIter
	if e.dryRun || e.policy.Mode == fix.ApplyModeID {
		limit = 1
	}
	for i := 1; ; i++ {
		idx := timer.Begin("scan " + strconv.Itoa(i))
		ds, err := e.source.Diagnostics(ctx)
		if err != nil {
			timer.End(idx, "failed")
			return total, fmt.Errorf("driver: scan: %w", err)
		}
		files, _ := e.group(ds, i)
		remaining := 0
		for _, f := range files {
			remaining += len(f.diags)
		}
		timer.End(idx, strconv.Itoa(remaining)+" actionable")
		total.Remaining = remaining

		if remaining == 0 {
			if i == 1 {
				return total, ErrNoDiagnostics
			}
			return total, nil
		}
		// последний проход только пересчитывает оставшиеся диагностики
		if i > limit {
			return total, nil
		}

		idx = timer.Begin("fix " + strconv.Itoa(i))
		rep, err := e.run(ctx, ds, i)
		total.merge(rep)
		if err != nil {
			timer.End(idx, "failed")
			return total, err
		}
		timer.End(idx, rep.Summary())
		if e.dryRun || rep.Count(Committed) == 0 {
			return total, nil
		}
	}
}
