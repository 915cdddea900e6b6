package vcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	for name, content := range map[string]string{
		"src/main.rs": "fn main() {}\n",
		"src/lib.rs":  "pub fn f() {}\n",
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.AddGlob("src"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return dir
}

func TestAnnotate(t *testing.T) {
	dir := initRepo(t)
	main := filepath.Join(dir, "src", "main.rs")
	lib := filepath.Join(dir, "src", "lib.rs")
	extra := filepath.Join(dir, "src", "extra.rs")
	if err := os.WriteFile(main, []byte("fn main() { let x = 1; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(extra, []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "other.rs")

	g, err := Open(filepath.Join(dir, "src"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	head := g.Head()
	if len(head) != 7 {
		t.Fatalf("head = %q", head)
	}

	got, err := g.Annotate(context.Background(), []string{main, lib, extra, outside})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	want := map[string]string{
		main:  "modified@" + head,
		lib:   "clean@" + head,
		extra: "untracked@" + head,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for p, w := range want {
		if got[p] != w {
			t.Errorf("%s = %q, want %q", filepath.Base(p), got[p], w)
		}
	}
}

func TestOpenOutsideRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Skip("temp dir is inside a git repository")
	}
	if !errors.Is(err, ErrNoRepository) {
		t.Fatalf("err = %v, want ErrNoRepository", err)
	}
}

func TestAnnotateCancelled(t *testing.T) {
	g, err := Open(initRepo(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Annotate(ctx, []string{"x"}); err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Fatalf("err = %v", err)
	}
}
