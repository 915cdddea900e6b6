package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rectify/internal/failure"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type staticChecker bool

func (p staticChecker) ScanProject(context.Context) (bool, error) { return bool(p), nil }

type failingChecker struct{}

func (failingChecker) ScanProject(context.Context) (bool, error) {
	return true, errors.New("cargo not found")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func project(t *testing.T) (string, map[string]string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/main.rs":     "fn main() {\n    println!(\"hi\");\n}\n",
		"src/lib.rs":      "pub fn add(a: u8, b: u8) -> u8 {\r\n    a + b\r\n}\r\n",
		"src/util/mod.rs": "",
		"build.rs":        "fn main() {}\n",
	}
	for rel, content := range files {
		writeFile(t, filepath.Join(root, rel), content)
	}
	return root, files
}

func newManager(t *testing.T, root string, opts ...Option) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)}
	m, err := New(root, "", append([]Option{WithClock(clock.now)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, clock
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	root, files := project(t)
	m, _ := newManager(t, root, WithBuildChecker(staticChecker(true)))

	set := []string{
		filepath.Join(root, "src/main.rs"),
		filepath.Join(root, "src/lib.rs"),
		filepath.Join(root, "src/util/mod.rs"),
	}
	op, err := m.Snapshot(context.Background(), set, "lint")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer op.Release()
	if !op.Success || len(op.Manifests) != len(set) || len(op.Warnings) != 0 {
		t.Fatalf("operation = %+v", op)
	}
	if filepath.Dir(op.Directory) != m.Dir() || filepath.Base(op.Directory) != "20261019_101500_lint_pre_fix" {
		t.Errorf("directory = %s", op.Directory)
	}
	for _, man := range op.Manifests {
		rel, _ := filepath.Rel(root, man.OriginalPath)
		if got := readFile(t, man.BackupPath); got != files[filepath.ToSlash(rel)] {
			t.Errorf("backup of %s = %q", rel, got)
		}
		if !man.PreFixCompilationStatus || man.FixType != "lint" {
			t.Errorf("manifest = %+v", man)
		}
		if err := Verify(man); err != nil {
			t.Errorf("Verify(%s): %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(op.Directory, "src", "util", "mod.rs")); err != nil {
		t.Errorf("relative layout not kept: %v", err)
	}

	// портим оригиналы, затем восстанавливаем
	for _, p := range set {
		writeFile(t, p, "garbage")
	}
	if err := m.RestoreAll(context.Background(), op); err != nil {
		t.Fatalf("RestoreAll: %v", err)
	}
	for rel, content := range files {
		if got := readFile(t, filepath.Join(root, rel)); got != content {
			t.Errorf("%s = %q, expected %q", rel, got, content)
		}
	}
}

func TestRestoreLeavesOtherFiles(t *testing.T) {
	root, _ := project(t)
	m, _ := newManager(t, root)
	main := filepath.Join(root, "src/main.rs")
	op, err := m.Snapshot(context.Background(), []string{main}, "derive")
	if err != nil {
		t.Fatal(err)
	}
	defer op.Release()

	writeFile(t, filepath.Join(root, "build.rs"), "// edited after the snapshot\n")
	writeFile(t, main, "broken")
	if err := m.RestoreAll(context.Background(), op); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(root, "build.rs")); got != "// edited after the snapshot\n" {
		t.Errorf("file outside the set changed: %q", got)
	}
}

func TestRestoreDetectsTampering(t *testing.T) {
	root, _ := project(t)
	m, _ := newManager(t, root)
	main := filepath.Join(root, "src/main.rs")
	lib := filepath.Join(root, "src/lib.rs")
	op, err := m.Snapshot(context.Background(), []string{main, lib}, "lint")
	if err != nil {
		t.Fatal(err)
	}
	defer op.Release()

	writeFile(t, main, "edited")
	writeFile(t, lib, "edited")
	writeFile(t, op.Manifests[1].BackupPath, "tampered")

	err = m.RestoreAll(context.Background(), op)
	if !errors.Is(err, failure.ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	var mismatch *ChecksumMismatchError
	if !errors.As(err, &mismatch) || mismatch.Expected != op.Manifests[1].Checksum || mismatch.Actual != Checksum([]byte("tampered")) {
		t.Errorf("mismatch = %+v", mismatch)
	}
	// ни один оригинал не тронут до полной проверки
	if got := readFile(t, main); got != "edited" {
		t.Errorf("main.rs restored despite the mismatch: %q", got)
	}
}

func TestSnapshotMissingFileIsUnusable(t *testing.T) {
	root, _ := project(t)
	m, _ := newManager(t, root)
	op, err := m.Snapshot(context.Background(), []string{
		filepath.Join(root, "src/main.rs"),
		filepath.Join(root, "src/missing.rs"),
	}, "lint")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer op.Release()
	if op.Success || len(op.Manifests) != 1 || len(op.Warnings) != 1 {
		t.Fatalf("operation = %+v", op)
	}
	if !strings.Contains(op.Warnings[0], "missing.rs") {
		t.Errorf("warning = %q", op.Warnings[0])
	}
	if err := m.RestoreAll(context.Background(), op); !errors.Is(err, ErrUnusable) {
		t.Errorf("expected ErrUnusable, got %v", err)
	}
	// частичный снимок остаётся на диске
	if _, err := os.Stat(op.Manifests[0].BackupPath); err != nil {
		t.Errorf("partial backup removed: %v", err)
	}
}

func TestSnapshotErrors(t *testing.T) {
	root, _ := project(t)
	m, _ := newManager(t, root)
	if _, err := m.Snapshot(context.Background(), nil, "lint"); !errors.Is(err, ErrNoFiles) {
		t.Errorf("empty: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Snapshot(ctx, []string{filepath.Join(root, "build.rs")}, "lint"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: %v", err)
	}
}

func TestBuildCheckFailureRecordsFalse(t *testing.T) {
	root, _ := project(t)
	m, _ := newManager(t, root, WithBuildChecker(failingChecker{}))
	op, err := m.Snapshot(context.Background(), []string{filepath.Join(root, "build.rs")}, "lint")
	if err != nil {
		t.Fatal(err)
	}
	defer op.Release()
	if op.Manifests[0].PreFixCompilationStatus {
		t.Error("failed build check recorded as compiling")
	}
}

func TestSnapshotNameCollision(t *testing.T) {
	root, _ := project(t)
	m, _ := newManager(t, root)
	file := []string{filepath.Join(root, "build.rs")}

	seen := map[string]bool{}
	for range 3 {
		op, err := m.Snapshot(context.Background(), file, "lint")
		if err != nil {
			t.Fatal(err)
		}
		op.Release()
		name := filepath.Base(op.Directory)
		if seen[name] {
			t.Fatalf("directory %s reused", name)
		}
		seen[name] = true
		if _, fixType, ok := ParseDirName(name); !ok || fixType != "lint" {
			t.Errorf("ParseDirName(%s) = %q, %v", name, fixType, ok)
		}
	}
	ents, err := m.List()
	if err != nil || len(ents) != 3 {
		t.Fatalf("List = %d entries, %v", len(ents), err)
	}
}

func TestParseDirName(t *testing.T) {
	want := time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)
	tests := []struct {
		name    string
		fixType string
		ok      bool
	}{
		{"20261019_101500_lint_pre_fix", "lint", true},
		{"20261019_101500_auto-recovery_pre_fix", "auto-recovery", true},
		{"20261019_101500.000000007_combined_pre_fix", "combined", true},
		{"20261019_101500_auto_recovery_pre_fix", "", false},
		{"20261019_101500__pre_fix", "", false},
		{"20261019_101500_lint", "", false},
		{"2026-10-19_lint_pre_fix", "", false},
		{"notes", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, fixType, ok := ParseDirName(tt.name)
			if ok != tt.ok || fixType != tt.fixType {
				t.Fatalf("expected %q, %v, got %q, %v", tt.fixType, tt.ok, fixType, ok)
			}
			if ok && !ts.Truncate(time.Second).Equal(want) {
				t.Errorf("timestamp = %v", ts)
			}
		})
	}
	if got := DirName(want, "auto_recovery"); got != "20261019_101500_auto-recovery_pre_fix" {
		t.Errorf("DirName = %s", got)
	}
}

func TestCleanupKeepsNewest(t *testing.T) {
	root, files := project(t)
	m, clock := newManager(t, root)
	file := []string{filepath.Join(root, "src/main.rs")}

	var dirs []string
	for range 5 {
		op, err := m.Snapshot(context.Background(), file, "lint")
		if err != nil {
			t.Fatal(err)
		}
		op.Release()
		dirs = append(dirs, op.Directory)
		clock.advance(time.Minute)
	}

	res, err := m.Cleanup(context.Background(), 2)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if len(res.Removed) != 3 {
		t.Errorf("removed %v", res.Removed)
	}
	for i, dir := range dirs {
		_, err := os.Stat(dir)
		if kept := err == nil; kept != (i >= 3) {
			t.Errorf("snapshot %d kept = %v", i, kept)
		}
	}
	ents, err := m.List()
	if err != nil || len(ents) != 2 || ents[0].Path != dirs[4] || ents[1].Path != dirs[3] {
		t.Errorf("List after cleanup = %+v, %v", ents, err)
	}
	for rel, content := range files {
		if got := readFile(t, filepath.Join(root, rel)); got != content {
			t.Errorf("cleanup touched %s", rel)
		}
	}
}

func TestCleanupSkipsInFlight(t *testing.T) {
	root, _ := project(t)
	m, clock := newManager(t, root)
	file := []string{filepath.Join(root, "build.rs")}

	live, err := m.Snapshot(context.Background(), file, "lint")
	if err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Minute)
	done, err := m.Snapshot(context.Background(), file, "lint")
	if err != nil {
		t.Fatal(err)
	}
	done.Release()

	res, err := m.Cleanup(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != live.Directory {
		t.Errorf("skipped = %v", res.Skipped)
	}
	if _, err := os.Stat(live.Directory); err != nil {
		t.Errorf("in-flight directory removed: %v", err)
	}
	if _, err := os.Stat(done.Directory); !os.IsNotExist(err) {
		t.Errorf("released directory kept: %v", err)
	}

	live.Release()
	live.Release()
	if res, err = m.Cleanup(context.Background(), 0); err != nil || len(res.Removed) != 1 {
		t.Errorf("after release: %+v, %v", res, err)
	}
}

func TestCleanupArchives(t *testing.T) {
	root, _ := project(t)
	archive := filepath.Join(t.TempDir(), "archive")
	m, clock := newManager(t, root, WithArchive(archive))
	for range 2 {
		op, err := m.Snapshot(context.Background(), []string{filepath.Join(root, "src/lib.rs")}, "lint")
		if err != nil {
			t.Fatal(err)
		}
		op.Release()
		clock.advance(time.Second)
	}
	res, err := m.Cleanup(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Archived) != 1 || len(res.Removed) != 1 {
		t.Fatalf("result = %+v", res)
	}
	info, err := os.Stat(res.Archived[0])
	if err != nil || info.Size() == 0 {
		t.Errorf("archive %s: %v", res.Archived[0], err)
	}
	if !strings.HasSuffix(res.Archived[0], "20261019_101500_lint_pre_fix.tar.zst") {
		t.Errorf("archive name = %s", res.Archived[0])
	}
}

func TestRestoreDirectory(t *testing.T) {
	root, files := project(t)
	m, _ := newManager(t, root)
	main := filepath.Join(root, "src/main.rs")
	op, err := m.Snapshot(context.Background(), []string{main}, "combined")
	if err != nil {
		t.Fatal(err)
	}
	op.Release()

	t.Run("sidecar", func(t *testing.T) {
		writeFile(t, main, "broken")
		got, err := m.RestoreDirectory(context.Background(), filepath.Base(op.Directory))
		if err != nil {
			t.Fatalf("RestoreDirectory: %v", err)
		}
		if got.ID != op.ID || readFile(t, main) != files["src/main.rs"] {
			t.Errorf("restored op %+v", got)
		}
	})

	t.Run("no sidecar", func(t *testing.T) {
		if err := os.Remove(filepath.Join(op.Directory, ManifestName)); err != nil {
			t.Fatal(err)
		}
		writeFile(t, main, "broken again")
		got, err := m.RestoreDirectory(context.Background(), op.Directory)
		if err != nil {
			t.Fatalf("RestoreDirectory: %v", err)
		}
		if got.FixType != "combined" || len(got.Manifests) != 1 {
			t.Errorf("rebuilt op %+v", got)
		}
		if readFile(t, main) != files["src/main.rs"] {
			t.Error("main.rs not restored")
		}
	})
}
