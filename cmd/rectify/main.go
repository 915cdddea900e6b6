package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rectify/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rectify",
	Short: "Regression-guarded fixes for Rust compiler diagnostics",
	Long: `rectify reads rustc diagnostics, proposes corrections from the surrounding
syntax tree, and applies the safe ones behind a backup and a re-check that
restores the file if the edit made things worse.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepare,
}

// usageError marks errors caused by how rectify was invoked.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// exitCode maps an error to the process exit status: 0 on success, 2 for
// usage errors and 1 for everything else.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

// main initializes the CLI by registering subcommands and persistent flags
// and runs the root command.
func main() {
	// версия для автоматического флага --version
	rootCmd.Version = version.Version

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(proposeCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	// глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to rectify.toml (default: searched upward from the working directory)")
	pf.String("root", "", "project root (overrides the config)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.String("trace-format", "", "trace output format (text|ndjson)")
	pf.Int("trace-ring-size", 4096, "events kept in ring mode; the ring is dumped for files whose fix failed")
	pf.StringSlice("trace-file", nil, "only trace events about these source files (repeatable)")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	err := rootCmd.Execute()
	if cleanupTrace != nil {
		cleanupTrace()
	}
	if perr := profile.Stop(); perr != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.YellowString("warning:"), perr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
	}
	os.Exit(exitCode(err))
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func applyColorMode(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return usageErrorf("invalid --color value %q (expected auto|on|off)", value)
	}
	return nil
}
