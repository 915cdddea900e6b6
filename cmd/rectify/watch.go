package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rectify/internal/driver"
	"rectify/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check the project on every change and print the proposals",
	Long: `Watch the project's sources. After each batch of changes cargo check runs
again and the proposals rectify would apply are printed. Nothing is written
unless --apply is given.`,
	Args: exactArgs(0),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before a batch of changes is handled")
	watchCmd.Flags().Bool("apply", false, "apply the selected proposals instead of only printing them")
	watchCmd.Flags().Bool("allow-review", false, "also apply proposals that require review")
	watchCmd.Flags().BoolP("verbose", "v", false, "also list skipped diagnostics")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := configFrom(ctx)
	flags := cmd.Flags()
	debounce, _ := flags.GetDuration("debounce")
	applyFixes, _ := flags.GetBool("apply")
	verbose, _ := flags.GetBool("verbose")
	policy := driver.Policy{AllowReview: cfg.Applier.AllowReview, AllowUnsafe: cfg.Applier.AllowUnsafe}
	if flags.Changed("allow-review") {
		policy.AllowReview, _ = flags.GetBool("allow-review")
	}

	cargo := newDiagnoser(cfg)
	dp, err := newDocs(ctx, cfg)
	if err != nil {
		return err
	}
	accept := sourceFilter(cfg.Project)
	engineOpts := []driver.Option{
		driver.WithGenerator(newGenerator(cfg, dp, cmd.ErrOrStderr())),
		driver.WithDocs(dp),
		driver.WithPolicy(policy),
		driver.WithJobs(cfg.Applier.Jobs),
		driver.WithMaxIterations(1),
		driver.WithDryRun(!applyFixes),
		driver.WithFilter(accept),
	}
	if applyFixes {
		b, err := newBackups(cfg, cargo)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, driver.WithApplier(newApplier(cfg, cargo, b)))
	}
	engine := driver.New(cargo, engineOpts...)

	w, err := watcher.New(cfg.Project.Root,
		watcher.WithDebounce(debounce),
		watcher.WithFilter(cfg.Project.Matches),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	check := func(ctx context.Context, changed []string) {
		if len(changed) > 0 {
			fmt.Fprintf(out, "\n%s %d file(s) changed\n", detailColor.Sprint(time.Now().Format("15:04:05")), len(changed))
		}
		rep, err := engine.RunIterative(ctx)
		switch {
		case errors.Is(err, driver.ErrNoDiagnostics):
			fmt.Fprintln(out, "clean")
		case errors.Is(err, context.Canceled):
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", failedColor.Sprint("error:"), err)
		default:
			printReport(out, cfg.Project.Root, rep, verbose)
		}
	}

	fmt.Fprintf(out, "watching %s\n", cfg.Project.Root)
	check(ctx, nil)
	return w.Run(ctx, check)
}
