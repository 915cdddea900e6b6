package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, FileName), `
[project]
backup_root = "snapshots"
exclude = ["src/generated/**"]

[generator]
max_proposals = 3

[applier]
scan_timeout = "90s"
allow_review = true
critical_patterns = ["cannot find"]

[ai]
enabled = true
weight = 0.5
`)
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Path != filepath.Join(root, FileName) {
		t.Fatalf("path = %q", cfg.Path)
	}
	if cfg.Project.Root != filepath.Clean(root) {
		t.Fatalf("root = %q, want %q", cfg.Project.Root, root)
	}
	if cfg.BackupDir() != filepath.Join(root, "snapshots") {
		t.Fatalf("backup dir = %q", cfg.BackupDir())
	}
	if cfg.Generator.MaxProposals != 3 {
		t.Fatalf("max_proposals = %d", cfg.Generator.MaxProposals)
	}
	// untouched keys keep their defaults
	if cfg.Generator.SimilarityThreshold != 0.6 || cfg.Applier.MaxIterations != 3 {
		t.Fatalf("defaults lost: %+v %+v", cfg.Generator, cfg.Applier)
	}
	if cfg.Applier.ScanTimeout.Duration != 90*time.Second || !cfg.Applier.AllowReview {
		t.Fatalf("applier = %+v", cfg.Applier)
	}
	if !slices.Equal(cfg.Applier.CriticalPatterns, []string{"cannot find"}) {
		t.Fatalf("patterns = %q", cfg.Applier.CriticalPatterns)
	}
	if !cfg.AI.Enabled || cfg.AI.Weight != 0.5 {
		t.Fatalf("ai = %+v", cfg.AI)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	// a rectify.toml further up (e.g. in $TMPDIR) would be found; only
	// check the no-file case when none was
	if cfg.Path != "" {
		t.Skipf("found %s above the temp dir", cfg.Path)
	}
	if cfg.Project.Root != dir {
		t.Fatalf("root = %q, want %q", cfg.Project.Root, dir)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\n", "failed to parse TOML"},
		{"unknown key", "[generator]\nmax_proposal = 2\n", "unknown keys: generator.max_proposal"},
		{"bad duration", "[applier]\nscan_timeout = \"soon\"\n", "failed to parse TOML"},
		{"threshold", "[generator]\nsimilarity_threshold = 1.5\n", "similarity_threshold"},
		{"unsafe without review", "[applier]\nallow_unsafe = true\n", "allow_unsafe requires allow_review"},
		{"bad glob", "[project]\ninclude = [\"src/[*.rs\"]\n", "bad glob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			write(t, path, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q lacks %q", err, tt.want)
			}
		})
	}
}

func TestSourceFiles(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"src/main.rs",
		"src/net/mod.rs",
		"src/generated/proto.rs",
		"src/notes.txt",
		"tests/it.rs",
		"target/debug/build/out.rs",
		"build.rs",
	} {
		write(t, filepath.Join(root, filepath.FromSlash(rel)), "fn main() {}\n")
	}
	p := Default().Project
	p.Root = root
	p.Exclude = append(p.Exclude, "src/generated/**")

	got, err := p.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles: %v", err)
	}
	var rels []string
	for _, f := range got {
		rel, ok := p.Rel(f)
		if !ok {
			t.Fatalf("%s outside root", f)
		}
		rels = append(rels, rel)
	}
	want := []string{"build.rs", "src/main.rs", "src/net/mod.rs", "tests/it.rs"}
	if !slices.Equal(rels, want) {
		t.Fatalf("got %q, want %q", rels, want)
	}
}

func TestMatches(t *testing.T) {
	p := Default().Project
	tests := []struct {
		rel  string
		want bool
	}{
		{"src/lib.rs", true},
		{"src/a/b/c.rs", true},
		{"src/lib.txt", false},
		{"target/debug/x.rs", false},
		{".rectify-backups/20261019_101500_x_pre_fix/src/lib.rs", false},
		{"vendor/x.rs", false},
	}
	for _, tt := range tests {
		if got := p.Matches(tt.rel); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestRel(t *testing.T) {
	p := Project{Root: filepath.FromSlash("/work/proj")}
	if rel, ok := p.Rel(filepath.FromSlash("/work/proj/src/a.rs")); !ok || rel != "src/a.rs" {
		t.Fatalf("inside = %q %v", rel, ok)
	}
	if _, ok := p.Rel(filepath.FromSlash("/work/other/a.rs")); ok {
		t.Fatal("outside path accepted")
	}
}
