package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rectify/internal/backup"
	"rectify/internal/config"
	"rectify/internal/diag"
	"rectify/internal/driver"
	"rectify/internal/fix"
	"rectify/internal/proposal"
	"rectify/internal/trace"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", usageErrorf("bad flag"), 2},
		{"wrapped usage", errors.Join(errors.New("x"), &usageError{err: errors.New("y")}), 2},
		{"unknown command", errors.New(`unknown command "fixx" for "rectify"`), 2},
		{"failure", errFixFailures, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, " on ": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); exitCode(err) != 2 {
		t.Fatalf("invalid mode should be a usage error, got %v", err)
	}
	if shouldUseTUI(uiModeOff) || !shouldUseTUI(uiModeOn) {
		t.Fatal("explicit ui modes are not honoured")
	}
}

func TestApplyColorMode(t *testing.T) {
	noColor(t)
	if err := applyColorMode("on"); err != nil || color.NoColor {
		t.Fatalf("on: NoColor=%v err=%v", color.NoColor, err)
	}
	if err := applyColorMode("off"); err != nil || !color.NoColor {
		t.Fatalf("off: NoColor=%v err=%v", color.NoColor, err)
	}
	if err := applyColorMode("rainbow"); exitCode(err) != 2 {
		t.Fatalf("invalid color mode: %v", err)
	}
}

const humanLog = "warning: unused variable: `x`\n" +
	" --> src/main.rs:2:9\n" +
	"  |\n" +
	"2 |     let x = 5;\n" +
	"  |         ^\n" +
	"  |\n" +
	"  = note: `#[warn(unused_variables)]` on by default\n" +
	"\n" +
	"error[E0599]: no method named `lenght` found for struct `String` in the current scope\n" +
	" --> src/main.rs:4:7\n" +
	"  |\n" +
	"4 |     s.lenght();\n" +
	"  |       ^^^^^^\n"

const jsonLog = `
{"reason":"compiler-message","package_id":"demo 0.1.0","target":{"name":"demo"},"message":{"rendered":"","children":[],"code":{"code":"E0599","explanation":null},"level":"error","message":"no method named ` + "`lenght`" + ` found for struct ` + "`String`" + ` in the current scope","spans":[{"file_name":"src/main.rs","byte_start":0,"byte_end":6,"column_start":7,"column_end":13,"is_primary":true,"label":null,"line_start":4,"line_end":4,"suggested_replacement":null,"text":[]}]}}
{"reason":"build-finished","success":false}
`

func TestReadLog(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		codes   []string
	}{
		{"human", humanLog, []string{"unused_variables", "E0599"}},
		{"json", jsonLog, []string{"E0599"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".log")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			ds, err := readLog(path, dir)
			if err != nil {
				t.Fatalf("readLog: %v", err)
			}
			if len(ds) != len(tt.codes) {
				t.Fatalf("got %d diagnostics, want %d: %v", len(ds), len(tt.codes), ds)
			}
			for i, code := range tt.codes {
				if ds[i].Code != code {
					t.Errorf("diagnostic %d code = %q, want %q", i, ds[i].Code, code)
				}
				if want := filepath.Join(dir, "src/main.rs"); ds[i].Location.File != want {
					t.Errorf("diagnostic %d file = %q, want %q", i, ds[i].Location.File, want)
				}
			}
		})
	}

	if _, err := readLog(filepath.Join(dir, "missing.log"), dir); err == nil {
		t.Fatal("missing log should fail")
	}
}

func TestSourceFilter(t *testing.T) {
	p := config.Default().Project
	p.Root = filepath.FromSlash("/work/proj")
	accept := sourceFilter(p)
	tests := []struct {
		path string
		want bool
	}{
		{"/work/proj/src/main.rs", true},
		{"src/lib.rs", true},
		{"/work/proj/target/debug/build/out.rs", false},
		{"/work/proj/README.md", false},
		{"/work/other/src/main.rs", false},
	}
	for _, tt := range tests {
		if got := accept(filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("accept(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestReadFixOptions(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		mode   fix.ApplyMode
		target string
		usage  bool
	}{
		{name: "default", mode: fix.ApplyModeOnce},
		{name: "all", args: []string{"--all"}, mode: fix.ApplyModeAll},
		{name: "by id", args: []string{"--id", "3f9a0c12d4e5"}, mode: fix.ApplyModeID, target: "3f9a0c12d4e5"},
		{name: "all and id", args: []string{"--all", "--id", "x"}, usage: true},
		{name: "zero iterations", args: []string{"--max-iterations", "0"}, usage: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "fix"}
			addFixFlags(cmd)
			if err := cmd.Flags().Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			opts, err := readFixOptions(cmd, config.Default())
			var ue *usageError
			if tt.usage {
				if !errors.As(err, &ue) {
					t.Fatalf("err = %v, want usage error", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if opts.policy.Mode != tt.mode || opts.policy.TargetID != tt.target {
				t.Errorf("policy = %+v", opts.policy)
			}
		})
	}
}

func TestPrintReport(t *testing.T) {
	noColor(t)
	root := filepath.FromSlash("/work/proj")
	path := filepath.Join(root, "src", "main.rs")
	loc := diag.Location{File: path, Line: 4, Column: 7}
	rep := &driver.Report{
		Iterations: 2,
		Remaining:  1,
		Entries: []driver.Entry{
			{
				Path:       path,
				Diagnostic: diag.New("E0599", diag.SevError, "no method named `lenght`", loc),
				Outcome:    driver.Committed,
				Proposal:   &proposal.Proposal{ID: "3f9a0c12d4e5", Original: "s.lenght()", Corrected: "s.len()", Confidence: 0.93, Safety: fix.Safe},
			},
			{
				Path:       path,
				Diagnostic: diag.New("unused_variables", diag.SevWarning, "unused variable", diag.Location{File: path, Line: 2, Column: 9}),
				Outcome:    driver.Skipped,
				Skip:       driver.SkipSafety,
			},
			{
				Path:       path,
				Diagnostic: diag.New("", diag.SevError, "mismatched types", diag.Location{File: path, Line: 9, Column: 1}),
				Outcome:    driver.Failed,
				Err:        errors.New("scan failed"),
			},
		},
	}

	var quiet bytes.Buffer
	printReport(&quiet, root, rep, false)
	out := quiet.String()
	for _, want := range []string{
		filepath.Join("src", "main.rs") + ":4:7 E0599",
		"(0.93, safe) [3f9a0c12d4e5]",
		":9:1 - mismatched types",
		"scan failed",
		"1 committed, 0 recovered, 1 skipped, 1 failed in 2 passes",
		"1 diagnostic(s) remain",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "below safety policy") {
		t.Errorf("skipped entries are shown without --verbose:\n%s", out)
	}

	var verbose bytes.Buffer
	printReport(&verbose, root, rep, true)
	if !strings.Contains(verbose.String(), "below safety policy") {
		t.Errorf("verbose report misses skipped entry:\n%s", verbose.String())
	}
}

func TestPrintProposals(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	printProposals(&buf, nil)
	if got := buf.String(); got != "no proposals\n" {
		t.Fatalf("empty = %q", got)
	}

	buf.Reset()
	printProposals(&buf, []proposal.Proposal{{
		ID:         "p1",
		Original:   "let x = 5;",
		Corrected:  "let _x = 5;",
		Confidence: 0.9,
		Safety:     fix.Safe,
		Metadata:   map[string]string{"warnings": "changes a binding name"},
	}})
	out := buf.String()
	for _, want := range []string{"1. ", "[p1]", "- let x = 5;", "+ let _x = 5;", "warning: changes a binding name"} {
		if !strings.Contains(out, want) {
			t.Errorf("proposals missing %q:\n%s", want, out)
		}
	}
}

func TestPrintBackups(t *testing.T) {
	noColor(t)
	root := t.TempDir()
	src := filepath.Join(root, "src", "main.rs")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := backup.New(root, "")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	ents, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	printBackups(&buf, ents)
	if got := buf.String(); got != "no backups\n" {
		t.Fatalf("empty list = %q", got)
	}

	op, err := m.Snapshot(context.Background(), []string{src}, "unused_variables")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	op.Release()

	ents, err = m.List()
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	printBackups(&buf, ents)
	out := buf.String()
	if !strings.Contains(out, "1 file(s)") || !strings.Contains(out, filepath.Base(op.Directory)) {
		t.Fatalf("list output:\n%s", out)
	}
}

func TestDisplayPath(t *testing.T) {
	root := filepath.FromSlash("/work/proj")
	if got := displayPath(root, filepath.Join(root, "src", "a.rs")); got != filepath.Join("src", "a.rs") {
		t.Errorf("inside root = %q", got)
	}
	outside := filepath.FromSlash("/elsewhere/a.rs")
	if got := displayPath(root, outside); got != outside {
		t.Errorf("outside root = %q", got)
	}
	if got := displayPath("", "x.rs"); got != "x.rs" {
		t.Errorf("no root = %q", got)
	}
}

func TestDumpFailureTraces(t *testing.T) {
	root := filepath.FromSlash("/work/proj")
	broken := filepath.Join(root, "src", "main.rs")
	fine := filepath.Join(root, "src", "lib.rs")

	ring := trace.NewRingTracer(64, trace.LevelError)
	ctx := trace.WithTracer(context.Background(), ring)
	for _, path := range []string{broken, fine} {
		_, span := trace.Start(trace.WithFile(ctx, path), trace.ScopeFile, "apply")
		span.End("done")
	}
	rep := &driver.Report{Entries: []driver.Entry{
		{Path: broken, Outcome: driver.Recovered},
		{Path: broken, Outcome: driver.Failed},
		{Path: fine, Outcome: driver.Committed},
	}}

	var buf bytes.Buffer
	dumpFailureTraces(&buf, ring, root, rep)
	out := buf.String()
	if strings.Count(out, "trace of ") != 1 || !strings.Contains(out, "trace of "+filepath.Join("src", "main.rs")+" (2 events)") {
		t.Fatalf("dump:\n%s", out)
	}
	if strings.Contains(out, "lib.rs") {
		t.Errorf("committed file dumped:\n%s", out)
	}

	buf.Reset()
	dumpFailureTraces(&buf, trace.Nop, root, rep)
	if buf.Len() != 0 {
		t.Errorf("dump without a ring: %q", buf.String())
	}
}
