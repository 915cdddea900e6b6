// Package diagnoser runs the compiler and turns its output into
// diag.Diagnostic values.
//
// Cargo drives `cargo check --message-format=json`; ParseHuman reads the
// human-readable output of rustc or cargo from a saved log; Script is a
// scripted fake for tests.
package diagnoser

import (
	"context"
	"errors"
	"path/filepath"

	"rectify/internal/diag"
)

const component = "diagnoser"

// ErrExhausted is returned by a Script with nothing left to return.
var ErrExhausted = errors.New("diagnoser: script exhausted")

// Diagnoser is the compiler as the pipeline sees it.
type Diagnoser interface {
	// Scan returns the diagnostics located in one file.
	Scan(ctx context.Context, path string) (diag.FileDiagnostics, error)
	// ScanProject reports whether the project compiles without errors.
	ScanProject(ctx context.Context) (bool, error)
	// Diagnostics returns every diagnostic of the project.
	Diagnostics(ctx context.Context) ([]diag.Diagnostic, error)
}

// InFile keeps the diagnostics located in path. Relative locations are
// resolved against root.
func InFile(root, path string, ds []diag.Diagnostic) []diag.Diagnostic {
	want := resolve(root, path)
	var out []diag.Diagnostic
	for _, d := range ds {
		if d.Location.File != "" && resolve(root, d.Location.File) == want {
			out = append(out, d)
		}
	}
	return out
}

func resolve(root, path string) string {
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}
	return filepath.Clean(path)
}
