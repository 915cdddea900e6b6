package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rectify/internal/config"
	"rectify/internal/diag"
	"rectify/internal/diagnoser"
	"rectify/internal/driver"
	"rectify/internal/fix"
	"rectify/internal/trace"
	"rectify/internal/ui"
)

// errFixFailures is returned when some diagnostics failed so the process
// exits non-zero after printing the report.
var errFixFailures = errors.New("some fixes failed")

var fixCmd = &cobra.Command{
	Use:   "fix [flags]",
	Short: "Propose and apply fixes for the current compiler diagnostics",
	Long: `Run cargo check, propose corrections for each diagnostic and apply the best
one the safety policy allows. Every edit is backed up first and re-checked
afterwards; an edit that makes things worse is rolled back. Passes repeat
until nothing more is fixed or --max-iterations is reached.

By default one fix per file is applied in a pass. --all applies every fix of
a file that does not overlap a more confident one; --id applies a single
proposal chosen from an earlier --dry-run.`,
	Args: exactArgs(0),
	RunE: runFix,
}

func init() {
	addFixFlags(fixCmd)
}

func addFixFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "print the selected proposals without changing files")
	cmd.Flags().String("from-log", "", "read diagnostics from a saved cargo/rustc log (human or JSON) instead of running cargo check")
	cmd.Flags().Bool("allow-review", false, "also apply proposals that require review")
	cmd.Flags().Bool("allow-unsafe", false, "also apply proposals marked unsafe")
	cmd.Flags().Int("max-iterations", 0, "maximum fix passes (default from config)")
	cmd.Flags().Int("jobs", 0, "files processed in parallel (default from config, 0 = GOMAXPROCS)")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().Bool("json", false, "print the report as JSON")
	cmd.Flags().BoolP("verbose", "v", false, "also list skipped diagnostics")
	cmd.Flags().Bool("all", false, "apply every fix of a file that does not overlap a more confident one, instead of one per pass")
	cmd.Flags().String("id", "", "apply only the proposal with this id (shown by --dry-run and propose)")
}

type fixOptions struct {
	dryRun  bool
	fromLog string
	policy  driver.Policy
	maxIter int
	jobs    int
	ui      uiMode
	json    bool
	verbose bool
}

// readFixOptions merges the flags over the configuration.
func readFixOptions(cmd *cobra.Command, cfg config.Config) (fixOptions, error) {
	flags := cmd.Flags()
	opts := fixOptions{
		policy:  driver.Policy{AllowReview: cfg.Applier.AllowReview, AllowUnsafe: cfg.Applier.AllowUnsafe},
		maxIter: cfg.Applier.MaxIterations,
		jobs:    cfg.Applier.Jobs,
	}
	opts.dryRun, _ = flags.GetBool("dry-run")
	opts.fromLog, _ = flags.GetString("from-log")
	opts.json, _ = flags.GetBool("json")
	opts.verbose, _ = flags.GetBool("verbose")
	if flags.Changed("allow-review") {
		opts.policy.AllowReview, _ = flags.GetBool("allow-review")
	}
	if flags.Changed("allow-unsafe") {
		opts.policy.AllowUnsafe, _ = flags.GetBool("allow-unsafe")
	}
	if flags.Changed("max-iterations") {
		n, _ := flags.GetInt("max-iterations")
		if n <= 0 {
			return opts, usageErrorf("--max-iterations must be positive, got %d", n)
		}
		opts.maxIter = n
	}
	if flags.Changed("jobs") {
		opts.jobs, _ = flags.GetInt("jobs")
	}
	all, _ := flags.GetBool("all")
	id, _ := flags.GetString("id")
	switch {
	case all && id != "":
		return opts, usageErrorf("--all and --id cannot be used together")
	case all:
		opts.policy.Mode = fix.ApplyModeAll
	case id != "":
		opts.policy.Mode, opts.policy.TargetID = fix.ApplyModeID, id
	}
	uiValue, _ := flags.GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return opts, err
	}
	opts.ui = mode
	return opts, nil
}

func runFix(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	opts, err := readFixOptions(cmd, cfg)
	if err != nil {
		return err
	}

	cargo := newDiagnoser(cfg)
	dp, err := newDocs(ctx, cfg)
	if err != nil {
		return err
	}
	engineOpts := []driver.Option{
		driver.WithGenerator(newGenerator(cfg, dp, cmd.ErrOrStderr())),
		driver.WithDocs(dp),
		driver.WithPolicy(opts.policy),
		driver.WithMaxIterations(opts.maxIter),
		driver.WithJobs(opts.jobs),
		driver.WithDryRun(opts.dryRun),
		driver.WithFilter(sourceFilter(cfg.Project)),
	}
	if !opts.dryRun {
		b, err := newBackups(cfg, cargo)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, driver.WithApplier(newApplier(cfg, cargo, b)))
	}

	var logged []diag.Diagnostic
	if opts.fromLog != "" {
		if logged, err = readLog(opts.fromLog, cfg.Project.Root); err != nil {
			return err
		}
	}

	useTUI := !opts.json && shouldUseTUI(opts.ui)
	var events chan driver.Event
	if useTUI {
		events = make(chan driver.Event, 256)
		engineOpts = append(engineOpts, driver.WithSink(driver.ChannelSink{Ch: events}))
	}
	engine := driver.New(cargo, engineOpts...)

	run := func(ctx context.Context) (*driver.Report, error) {
		if opts.fromLog != "" {
			return engine.Run(ctx, logged)
		}
		return engine.RunIterative(ctx)
	}
	var rep *driver.Report
	if useTUI {
		rep, err = runFixWithUI(ctx, "rectify fix", events, run)
	} else {
		rep, err = run(ctx)
	}

	out := cmd.OutOrStdout()
	if errors.Is(err, driver.ErrNoDiagnostics) {
		if opts.json && rep != nil {
			return rep.WriteJSON(out)
		}
		fmt.Fprintln(out, "nothing to fix")
		return nil
	}
	if rep != nil {
		if opts.json {
			if jerr := rep.WriteJSON(out); jerr != nil {
				return jerr
			}
		} else {
			printReport(out, cfg.Project.Root, rep, opts.verbose)
		}
	}
	dumpFailureTraces(cmd.ErrOrStderr(), trace.FromContext(ctx), cfg.Project.Root, rep)
	if err != nil {
		return err
	}
	if !rep.OK() {
		return errFixFailures
	}
	return nil
}

type fixOutcome struct {
	rep *driver.Report
	err error
}

// runFixWithUI runs fn while the progress view renders its events. events
// is closed when fn returns.
func runFixWithUI(ctx context.Context, title string, events chan driver.Event, fn func(context.Context) (*driver.Report, error)) (*driver.Report, error) {
	outcomeCh := make(chan fixOutcome, 1)
	go func() {
		rep, err := fn(ctx)
		outcomeCh <- fixOutcome{rep: rep, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, nil, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// дочитываем события, чтобы движок не заблокировался
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.rep, uiErr
	}
	return outcome.rep, outcome.err
}

// readLog parses a saved build log. Logs whose first non-blank character
// is '{' are cargo JSON messages; anything else is human rustc output.
func readLog(path, root string) ([]diag.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("from-log: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	isJSON := false
	for {
		ch, _, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("from-log: %w", err)
		}
		if unicode.IsSpace(ch) {
			continue
		}
		isJSON = ch == '{'
		if err := r.UnreadRune(); err != nil {
			return nil, fmt.Errorf("from-log: %w", err)
		}
		break
	}

	var ds []diag.Diagnostic
	if isJSON {
		ds, err = diagnoser.DecodeJSON(r, root)
	} else {
		ds, err = diagnoser.ParseHuman(r, root)
	}
	if err != nil {
		return nil, fmt.Errorf("from-log %s: %w", path, err)
	}
	return ds, nil
}
