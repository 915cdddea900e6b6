// Package backup takes checksum-verified snapshots of source files before
// they are edited and restores them on demand.
//
// Layout under the backup root:
//
//	20261019_101500_lint_pre_fix/
//	    manifest.json
//	    src/main.rs
//	    src/lib.rs
//
// Paths below the project root keep their relative location inside the
// snapshot directory. The directory name carries the timestamp and fix type
// so listings work without reading the sidecar.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nightlyone/lockfile"
)

const component = "backup"

const (
	// DefaultRoot is the backup directory name below the project root.
	DefaultRoot = ".rectify-backups"
	// ManifestName is the JSON sidecar written into every snapshot directory.
	ManifestName = "manifest.json"
	// LockName marks a snapshot directory whose operation is still in flight.
	LockName = ".inflight.lock"

	dirSuffix      = "_pre_fix"
	timeLayout     = "20060102_150405"
	checksumPrefix = "sha256:"
	// externalDir holds files that live outside the project root.
	externalDir = "_external"
)

var (
	// ErrUnusable is returned when restoring from an operation whose snapshot
	// did not complete.
	ErrUnusable = errors.New("backup operation is unusable")
	// ErrDirectoryCreation is returned when the snapshot directory cannot be made.
	ErrDirectoryCreation = errors.New("cannot create backup directory")
	// ErrManifest is returned when the sidecar cannot be written or read.
	ErrManifest = errors.New("backup manifest error")
	// ErrFileNotFound is returned for a snapshot or restore of a missing file.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoFiles is returned by Snapshot for an empty file list.
	ErrNoFiles = errors.New("nothing to back up")
)

// ChecksumMismatchError reports a backup whose bytes changed since the
// snapshot.
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Manifest describes one backed-up file. It is never modified after the
// snapshot that wrote it.
type Manifest struct {
	OriginalPath            string            `json:"original_path"`
	BackupPath              string            `json:"backup_path"`
	Timestamp               time.Time         `json:"timestamp"`
	FileSize                int64             `json:"file_size"`
	Checksum                string            `json:"checksum"`
	FixType                 string            `json:"fix_type"`
	PreFixCompilationStatus bool              `json:"pre_fix_compilation_status"`
	Metadata                map[string]string `json:"metadata,omitempty"`
}

// Operation is the set of manifests taken for one fix attempt. Only an
// operation with Success set may be restored.
type Operation struct {
	ID        string
	Manifests []Manifest
	Directory string
	Timestamp time.Time
	FixType   string
	Success   bool
	Warnings  []string

	m    *Manager
	lock *lockfile.Lockfile
	once sync.Once
}

// Release marks the operation finished. Until then Cleanup leaves its
// directory alone. Release is idempotent.
func (op *Operation) Release() {
	if op == nil || op.m == nil {
		return
	}
	op.once.Do(func() {
		op.m.release(op.Directory)
		if op.lock != nil {
			_ = op.lock.Unlock()
		}
	})
}

// BuildChecker reports whether the project currently compiles. Any diagnoser
// satisfies it.
type BuildChecker interface {
	ScanProject(ctx context.Context) (bool, error)
}

// Annotator adds version-control state to each manifest.
type Annotator interface {
	Annotate(ctx context.Context, paths []string) (map[string]string, error)
}

// Manager owns one backup root.
type Manager struct {
	root       string // project root
	dir        string // backup root
	archiveDir string
	checker    BuildChecker
	annotator  Annotator
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]int
}

// Option configures a Manager.
type Option func(*Manager)

// WithBuildChecker records the project's compile status in every manifest.
func WithBuildChecker(p BuildChecker) Option { return func(m *Manager) { m.checker = p } }

// WithAnnotator records version-control state in every manifest.
func WithAnnotator(a Annotator) Option { return func(m *Manager) { m.annotator = a } }

// WithArchive makes Cleanup archive evicted directories to dir as .tar.zst.
func WithArchive(dir string) Option { return func(m *Manager) { m.archiveDir = dir } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// New returns a Manager for projectRoot. backupRoot is relative to the
// project root unless absolute; empty means DefaultRoot. The directory is
// created lazily by the first snapshot.
func New(projectRoot, backupRoot string, opts ...Option) (*Manager, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("backup: project root: %w", err)
	}
	if backupRoot == "" {
		backupRoot = DefaultRoot
	}
	dir := backupRoot
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	m := &Manager{
		root:     root,
		dir:      filepath.Clean(dir),
		now:      time.Now,
		inflight: make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.archiveDir != "" && !filepath.IsAbs(m.archiveDir) {
		m.archiveDir = filepath.Join(root, m.archiveDir)
	}
	return m, nil
}

// Dir returns the backup root.
func (m *Manager) Dir() string { return m.dir }

// Root returns the project root.
func (m *Manager) Root() string { return m.root }

func (m *Manager) acquire(dir string) {
	m.mu.Lock()
	m.inflight[dir]++
	m.mu.Unlock()
}

func (m *Manager) release(dir string) {
	m.mu.Lock()
	if m.inflight[dir] <= 1 {
		delete(m.inflight, dir)
	} else {
		m.inflight[dir]--
	}
	m.mu.Unlock()
}

func (m *Manager) inFlight(dir string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight[dir] > 0
}

// Checksum returns the fingerprint of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return checksumPrefix + hex.EncodeToString(sum[:])
}

// FileChecksum reads path and returns its fingerprint and size.
func FileChecksum(path string) (string, int64, error) {
	// #nosec G304 -- backup and project paths only
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	return Checksum(data), int64(len(data)), nil
}

// DirName formats the snapshot directory name for t and fixType.
func DirName(t time.Time, fixType string) string {
	return t.UTC().Format(timeLayout) + "_" + tag(fixType) + dirSuffix
}

// ParseDirName parses a snapshot directory name back into its timestamp and
// fix type. A collision suffix on the seconds (".000000042") is accepted.
func ParseDirName(name string) (time.Time, string, bool) {
	rest, ok := strings.CutSuffix(name, dirSuffix)
	if !ok || len(rest) < len("20060102_150405_x") || rest[8] != '_' {
		return time.Time{}, "", false
	}
	i := strings.IndexByte(rest[9:], '_')
	if i < 0 {
		return time.Time{}, "", false
	}
	stamp, fixType := rest[:9+i], rest[9+i+1:]
	if fixType == "" || strings.Contains(fixType, "_") {
		return time.Time{}, "", false
	}
	// дробная часть секунд принимается Parse даже без неё в layout
	t, err := time.ParseInLocation(timeLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, "", false
	}
	return t, fixType, true
}

// tag makes fixType usable as a directory name token.
func tag(fixType string) string {
	fixType = strings.TrimSpace(fixType)
	if fixType == "" {
		return "fix"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '_' || r == ' ' || r == filepath.Separator || r == '/':
			return '-'
		}
		return r
	}, fixType)
}
