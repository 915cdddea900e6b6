package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestBatches(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	target := filepath.Join(root, "target")
	for _, d := range []string{src, target} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := New(root, WithDebounce(150*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, paths []string) { batches <- paths })
	}()

	write := func(path string) {
		t.Helper()
		if err := os.WriteFile(path, []byte("fn f() {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(src, "b.rs"))
	write(filepath.Join(src, "a.rs"))
	write(filepath.Join(src, "notes.txt"))
	write(filepath.Join(target, "gen.rs"))

	select {
	case got := <-batches:
		want := []string{filepath.Join(src, "a.rs"), filepath.Join(src, "b.rs")}
		if !slices.Equal(got, want) {
			t.Fatalf("batch = %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	// directories created after start are watched too
	nested := filepath.Join(src, "net")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	write(filepath.Join(nested, "mod.rs"))

	select {
	case got := <-batches:
		if !slices.Contains(got, filepath.Join(nested, "mod.rs")) {
			t.Fatalf("batch = %q, missing nested file", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("nested change not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDefaultSkipDir(t *testing.T) {
	tests := map[string]bool{
		".":                false,
		"src":              false,
		"target":           true,
		"crates/a/target":  true,
		".git":             true,
		".rectify-backups": true,
		"src/.hidden":      true,
	}
	for rel, want := range tests {
		if got := defaultSkipDir(rel); got != want {
			t.Errorf("defaultSkipDir(%q) = %v, want %v", rel, got, want)
		}
	}
}
