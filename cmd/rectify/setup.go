package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rectify/internal/apply"
	"rectify/internal/backup"
	"rectify/internal/config"
	"rectify/internal/diagnoser"
	"rectify/internal/docs"
	"rectify/internal/prof"
	"rectify/internal/proposal"
	"rectify/internal/scoring"
	"rectify/internal/trace"
	"rectify/internal/vcs"
)

type configKey struct{}

// skipConfig marks commands that run without a project.
const skipConfig = "skip-config"

// prepare loads the configuration and installs the tracer before any
// subcommand runs.
func prepare(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	colorMode, _ := flags.GetString("color")
	if err := applyColorMode(colorMode); err != nil {
		return err
	}
	if err := setupProfiling(cmd); err != nil {
		return err
	}
	if cmd.Annotations[skipConfig] != "" {
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	cleanupTrace = cleanup
	cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, _ := flags.GetString("config")
	root, _ := flags.GetString("root")

	var (
		cfg config.Config
		err error
	)
	switch {
	case path != "":
		cfg, err = config.Load(path)
	case root != "":
		cfg, err = config.Discover(root)
	default:
		wd, werr := os.Getwd()
		if werr != nil {
			return cfg, werr
		}
		cfg, err = config.Discover(wd)
	}
	if err != nil {
		return cfg, &usageError{err: err}
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return cfg, err
		}
		cfg.Project.Root = abs
	}
	return cfg, nil
}

// configFrom returns the configuration installed by prepare.
func configFrom(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(configKey{}).(config.Config); ok {
		return cfg
	}
	cfg := config.Default()
	if wd, err := os.Getwd(); err == nil {
		cfg.Project.Root = wd
	}
	return cfg
}

func newDiagnoser(cfg config.Config) *diagnoser.Cargo {
	c := diagnoser.NewCargo(cfg.Project.Root)
	c.Command = cfg.Diagnoser.Command
	c.Args = cfg.Diagnoser.Args
	c.Timeout = cfg.Diagnoser.Timeout.Duration
	return c
}

// newDocs stacks the in-memory cache over the on-disk cache over the
// builtin std tables. A disk cache that cannot be opened is left out.
func newDocs(ctx context.Context, cfg config.Config) (docs.Provider, error) {
	var p docs.Provider = docs.Builtin{}
	dir := cfg.Docs.CacheDir
	if dir == "" {
		dir, _ = docs.DefaultCacheDir("rectify")
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.Project.Root, dir)
	}
	if dir != "" {
		dc, err := docs.OpenDiskCache(dir, p, cfg.Docs.MaxAge.Duration)
		if err != nil {
			trace.Note(ctx, trace.ScopeRun, "docs.disk_unavailable", err.Error())
		} else {
			p = dc
		}
	}
	return docs.NewLRU(p, cfg.Docs.LRUSize)
}

// newGenerator builds the proposal generator. When AI scoring is enabled
// but unavailable, a warning goes to warn and the generator runs without it.
func newGenerator(cfg config.Config, dp docs.Provider, warn io.Writer) *proposal.Generator {
	opts := []proposal.Option{
		proposal.WithDocs(dp),
		proposal.WithMaxProposals(cfg.Generator.MaxProposals),
		proposal.WithThreshold(cfg.Generator.SimilarityThreshold),
		proposal.WithMinConfidence(cfg.Generator.MinConfidence),
	}
	if cfg.AI.Enabled {
		s, err := scoring.New(scoring.Config{Model: cfg.AI.Model, Timeout: cfg.AI.Timeout.Duration})
		switch {
		case err == nil:
			opts = append(opts, proposal.WithScorer(s, cfg.AI.Weight))
		case errors.Is(err, scoring.ErrDisabled):
		default:
			fmt.Fprintf(warn, "warning: AI scoring unavailable: %v\n", err)
		}
	}
	return proposal.New(opts...)
}

func newBackups(cfg config.Config, checker backup.BuildChecker) (*backup.Manager, error) {
	opts := []backup.Option{backup.WithBuildChecker(checker)}
	if g, err := vcs.Open(cfg.Project.Root); err == nil {
		opts = append(opts, backup.WithAnnotator(g))
	}
	if cfg.Backup.ArchiveDir != "" {
		opts = append(opts, backup.WithArchive(cfg.Backup.ArchiveDir))
	}
	return backup.New(cfg.Project.Root, cfg.BackupDir(), opts...)
}

func newApplier(cfg config.Config, scanner apply.Scanner, b *backup.Manager) *apply.Applier {
	return apply.New(scanner, b, apply.WithPolicy(apply.Policy{
		CriticalPatterns: cfg.Applier.CriticalPatterns,
		WarningFactor:    cfg.Applier.WarningFactor,
		ScanTimeout:      cfg.Applier.ScanTimeout.Duration,
	}))
}

// sourceFilter keeps files under the project root matched by its globs.
func sourceFilter(p config.Project) func(string) bool {
	return func(path string) bool {
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.Root, path)
		}
		rel, ok := p.Rel(path)
		return ok && p.Matches(rel)
	}
}

// profile is the session started by setupProfiling; main stops it.
var profile *prof.Session

func setupProfiling(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	var p prof.Paths
	p.CPU, _ = flags.GetString("cpu-profile")
	p.Mem, _ = flags.GetString("mem-profile")
	p.Trace, _ = flags.GetString("runtime-trace")
	s, err := prof.Start(p)
	if err != nil {
		return err
	}
	profile = s
	return nil
}

// resolvePath makes a command-line path absolute.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}
