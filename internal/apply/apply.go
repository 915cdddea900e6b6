// Package apply commits proposals to disk and reverts them when the
// compiler's diagnostics get worse.
//
// Per file the order is fixed: scan, snapshot, edit, scan, then commit or
// restore. A file is guarded by its own mutex for the whole sequence, so two
// proposals for the same file never interleave while different files run in
// parallel.
package apply

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"rectify/internal/backup"
	"rectify/internal/diag"
	"rectify/internal/failure"
	"rectify/internal/fix"
	"rectify/internal/observ"
	"rectify/internal/proposal"
	"rectify/internal/templates"
	"rectify/internal/trace"
)

const component = "apply"

// ErrGuardMismatch is returned when the file no longer holds the text a
// proposal was generated against.
var ErrGuardMismatch = fix.ErrGuardMismatch

// Scanner produces the diagnostics of one file. Any diagnoser satisfies it.
type Scanner interface {
	Scan(ctx context.Context, path string) (diag.FileDiagnostics, error)
}

// Outcome is what happened to one proposal.
type Outcome uint8

const (
	// Failed means the file was not changed: the scan, snapshot or edit failed.
	Failed Outcome = iota
	// Committed means the edit stays.
	Committed
	// Recovered means the edit regressed and the file was restored.
	Recovered
	// RecoveryFailed means the edit regressed and the restore failed too.
	RecoveryFailed
)

var outcomeNames = [...]string{
	Failed:         "failed",
	Committed:      "committed",
	Recovered:      "recovered",
	RecoveryFailed: "recovery failed",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Result reports one Apply.
type Result struct {
	Path       string
	ProposalID string
	Strategy   string
	Outcome    Outcome
	Pre, Post  diag.FileDiagnostics
	// Reason explains a regression.
	Reason             string
	RecoveryTriggered  bool
	RecoverySuccessful bool
	// TimedOut marks an inconclusive post-edit scan.
	TimedOut bool
	Backup   string
	Duration time.Duration
	Err      error
}

// Applier applies proposals under the regression guard.
type Applier struct {
	scanner   Scanner
	backups   *backup.Manager
	metrics   *observ.Registry
	templates *templates.Cache
	policy    Policy
	locks     sync.Map // canonical path -> *sync.Mutex
}

// Option configures an Applier.
type Option func(*Applier)

// WithPolicy replaces the default regression policy.
func WithPolicy(p Policy) Option { return func(a *Applier) { a.policy = p } }

// WithScanTimeout sets the deadline of each diagnostic scan.
func WithScanTimeout(d time.Duration) Option { return func(a *Applier) { a.policy.ScanTimeout = d } }

// WithMetrics replaces the process-wide metrics registry.
func WithMetrics(r *observ.Registry) Option { return func(a *Applier) { a.metrics = r } }

// WithTemplates replaces the process-wide template cache.
func WithTemplates(c *templates.Cache) Option { return func(a *Applier) { a.templates = c } }

// New returns an Applier scanning with s and snapshotting into b.
func New(s Scanner, b *backup.Manager, opts ...Option) *Applier {
	a := &Applier{scanner: s, backups: b, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = observ.Default()
	}
	if a.templates == nil {
		a.templates = templates.Default()
	}
	return a
}

// lock returns the mutex of path, creating it on first use. Entries are
// never removed during a run.
func (a *Applier) lock(path string) *sync.Mutex {
	key := canonical(path)
	if mu, ok := a.locks.Load(key); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := a.locks.LoadOrStore(key, new(sync.Mutex))
	return mu.(*sync.Mutex)
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// Apply runs the guarded sequence for p. The returned error is non-nil for
// Failed and RecoveryFailed; a Recovered result is not an error.
func (a *Applier) Apply(ctx context.Context, p proposal.Proposal) (res Result, err error) {
	started := time.Now()
	res = Result{Path: p.Path, ProposalID: p.ID}
	if p.Strategy != nil {
		res.Strategy = p.Strategy.Kind().String()
	}
	if len(p.Edits) == 0 {
		res.Err = failure.New(failure.KindGeneration, component, "apply", p.Path, errors.New("proposal has no edits"))
		return res, res.Err
	}

	mu := a.lock(p.Path)
	mu.Lock()
	defer mu.Unlock()

	ctx, span := trace.Start(ctx, trace.ScopeFile, "apply")
	span.WithExtra("path", p.Path).WithExtra("proposal", p.ID)
	defer func() {
		res.Duration = time.Since(started)
		span.End(res.Outcome.String())
	}()

	fail := func(op string, err error) (Result, error) {
		res.Outcome = Failed
		res.Err = failure.Wrap(component, op, p.Path, err)
		return res, res.Err
	}

	pre, _, err := a.scan(ctx, p.Path)
	if err != nil {
		return fail("scan", err)
	}
	res.Pre = pre

	op, err := a.backups.Snapshot(ctx, []string{p.Path}, res.Strategy)
	if err != nil {
		return fail("snapshot", err)
	}
	defer op.Release()
	res.Backup = op.Directory
	if !op.Success {
		return fail("snapshot", fmt.Errorf("%w: %v", backup.ErrUnusable, op.Warnings))
	}

	if err := ctx.Err(); err != nil {
		return fail("edit", err)
	}
	if err := fix.ApplyFile(p.Path, p.Edits); err != nil {
		return fail("edit", err)
	}

	post, timedOut, err := a.scan(ctx, p.Path)
	res.Post, res.TimedOut = post, timedOut
	regressed, reason := false, ""
	switch {
	case err != nil:
		// неполный результат сканирования: откатываем на всякий случай
		regressed, reason = true, "inconclusive scan: "+err.Error()
	default:
		regressed, reason = ShouldTriggerRecovery(pre, post, a.policy)
	}

	if !regressed {
		res.Outcome = Committed
		a.metrics.RecordCommit(res.Strategy)
		if p.Template != "" {
			a.templates.RecordUse(p.Template)
		}
		trace.Note(ctx, trace.ScopeFile, "apply.committed", p.Title())
		return res, nil
	}

	res.Reason = reason
	res.RecoveryTriggered = true
	// откат выполняется и после отмены контекста
	rerr := a.backups.RestoreAll(context.WithoutCancel(ctx), op)
	a.metrics.RecordRecovery(rerr == nil)
	trace.Note(ctx, trace.ScopeFile, "apply.recovery", reason,
		"ok", fmt.Sprint(rerr == nil))
	if rerr != nil {
		res.Outcome = RecoveryFailed
		res.Err = failure.Wrap(component, "restore", p.Path, rerr)
		return res, res.Err
	}
	res.Outcome = Recovered
	res.RecoverySuccessful = true
	return res, nil
}

// scan runs one diagnostic scan under the policy deadline.
func (a *Applier) scan(ctx context.Context, path string) (diag.FileDiagnostics, bool, error) {
	if a.policy.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.policy.ScanTimeout)
		defer cancel()
	}
	fd, err := a.scanner.Scan(ctx, path)
	timedOut := errors.Is(err, context.DeadlineExceeded)
	a.metrics.RecordScan(timedOut)
	if timedOut {
		err = failure.New(failure.KindTimeout, component, "scan", path, err)
	}
	return fd, timedOut, err
}
