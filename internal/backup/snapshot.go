package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nightlyone/lockfile"

	"rectify/internal/failure"
	"rectify/internal/trace"
)

// maxCollisions bounds the retries for a directory name taken in the same
// second.
const maxCollisions = 64

// sidecar is the JSON form of an Operation.
type sidecar struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	FixType   string     `json:"fix_type"`
	Success   bool       `json:"success"`
	Warnings  []string   `json:"warnings,omitempty"`
	Manifests []Manifest `json:"manifests"`
}

// Snapshot copies files into a fresh snapshot directory and verifies every
// copy. Per-file failures become warnings and clear Success; the partial
// directory is kept for inspection. An error is returned only when nothing
// could be started: empty input, cancelled context or no directory.
//
// The returned operation stays in flight until Release.
func (m *Manager) Snapshot(ctx context.Context, files []string, fixType string) (*Operation, error) {
	if len(files) == 0 {
		return nil, failure.New(failure.KindIo, component, "snapshot", "", ErrNoFiles)
	}
	if err := ctx.Err(); err != nil {
		return nil, failure.Wrap(component, "snapshot", "", err)
	}
	ctx, span := trace.Start(ctx, trace.ScopeFile, "backup.snapshot")
	span.WithExtra("fix_type", fixType).WithExtra("files", fmt.Sprint(len(files)))

	status := m.compiles(ctx)
	now := m.now().UTC()
	dir, err := m.makeDir(now, fixType)
	if err != nil {
		span.End("no directory")
		return nil, err
	}

	op := &Operation{
		ID:        uuid.NewString(),
		Directory: dir,
		Timestamp: now,
		FixType:   fixType,
		m:         m,
	}
	m.acquire(dir)
	op.lock = lockDir(dir)

	var vcs map[string]string
	if m.annotator != nil {
		// разметка VCS необязательна; ошибка не мешает снимку
		if vcs, err = m.annotator.Annotate(ctx, files); err != nil {
			op.Warnings = append(op.Warnings, "vcs: "+err.Error())
			vcs = nil
		}
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			op.Warnings = append(op.Warnings, "interrupted: "+err.Error())
			break
		}
		man, err := m.copyFile(path, dir, now, fixType, status)
		if err != nil {
			op.Warnings = append(op.Warnings, err.Error())
			trace.Note(ctx, trace.ScopeFile, "backup.file_failed", err.Error(),
				"path", path)
			continue
		}
		if s, ok := vcs[path]; ok {
			man.Metadata = map[string]string{"vcs_status": s}
		}
		op.Manifests = append(op.Manifests, man)
	}
	op.Success = len(op.Manifests) == len(files)

	if err := writeSidecar(dir, op); err != nil {
		op.Warnings = append(op.Warnings, err.Error())
		op.Success = false
	}
	span.WithExtra("success", fmt.Sprint(op.Success))
	span.End(filepath.Base(dir))
	return op, nil
}

// compiles asks the checker for the compile status; failure counts as false.
func (m *Manager) compiles(ctx context.Context) bool {
	if m.checker == nil {
		return false
	}
	ok, err := m.checker.ScanProject(ctx)
	if err != nil {
		trace.Note(ctx, trace.ScopeFile, "backup.build_check_failed", err.Error())
		return false
	}
	return ok
}

// makeDir creates a unique snapshot directory. A name already taken in the
// same second gets a nanosecond suffix.
func (m *Manager) makeDir(now time.Time, fixType string) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", failure.New(failure.KindOf(err), component, "snapshot", m.dir,
			fmt.Errorf("%w: %w", ErrDirectoryCreation, err))
	}
	name := DirName(now, fixType)
	for i := 0; i <= maxCollisions; i++ {
		if i > 0 {
			nanos := (now.Nanosecond() + i) % int(time.Second)
			name = fmt.Sprintf("%s.%09d_%s%s", now.Format(timeLayout), nanos, tag(fixType), dirSuffix)
		}
		dir := filepath.Join(m.dir, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", failure.New(failure.KindOf(err), component, "snapshot", dir,
				fmt.Errorf("%w: %w", ErrDirectoryCreation, err))
		}
	}
	return "", failure.New(failure.KindIo, component, "snapshot", m.dir,
		fmt.Errorf("%w: too many snapshots named %s", ErrDirectoryCreation, DirName(now, fixType)))
}

// lockDir marks dir as in flight for other processes. It is best-effort.
func lockDir(dir string) *lockfile.Lockfile {
	lock, err := lockfile.New(filepath.Join(dir, LockName))
	if err != nil {
		return nil
	}
	if err := lock.TryLock(); err != nil {
		return nil
	}
	return &lock
}

// copyFile backs up one file: read, write, re-read and compare. Only one
// file is open at a time.
func (m *Manager) copyFile(path, dir string, now time.Time, fixType string, status bool) (Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Manifest{}, failure.Wrap(component, "snapshot", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		return Manifest{}, failure.Wrap(component, "snapshot", path, err)
	}
	if !info.Mode().IsRegular() {
		return Manifest{}, failure.New(failure.KindIo, component, "snapshot", path, errors.New("not a regular file"))
	}
	// #nosec G304 -- a file named by the caller
	data, err := os.ReadFile(abs)
	if err != nil {
		return Manifest{}, failure.Wrap(component, "snapshot", path, err)
	}
	sum := Checksum(data)

	dst := filepath.Join(dir, m.relative(abs))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Manifest{}, failure.Wrap(component, "snapshot", dst, err)
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return Manifest{}, failure.Wrap(component, "snapshot", dst, err)
	}
	got, _, err := FileChecksum(dst)
	if err != nil {
		return Manifest{}, failure.Wrap(component, "snapshot", dst, err)
	}
	if got != sum {
		return Manifest{}, failure.New(failure.KindChecksumMismatch, component, "snapshot", dst,
			&ChecksumMismatchError{Path: dst, Expected: sum, Actual: got})
	}
	return Manifest{
		OriginalPath:            abs,
		BackupPath:              dst,
		Timestamp:               now,
		FileSize:                int64(len(data)),
		Checksum:                sum,
		FixType:                 fixType,
		PreFixCompilationStatus: status,
	}, nil
}

// relative maps abs into the snapshot directory: below the project root the
// relative path is kept, anything else goes under _external/.
func (m *Manager) relative(abs string) string {
	if rel, err := filepath.Rel(m.root, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return rel
	}
	sum := Checksum([]byte(filepath.Dir(abs)))
	return filepath.Join(externalDir, sum[len(checksumPrefix):len(checksumPrefix)+8], filepath.Base(abs))
}

func writeSidecar(dir string, op *Operation) error {
	data, err := json.MarshalIndent(sidecar{
		ID:        op.ID,
		Timestamp: op.Timestamp,
		FixType:   op.FixType,
		Success:   op.Success,
		Warnings:  op.Warnings,
		Manifests: op.Manifests,
	}, "", "  ")
	if err != nil {
		return failure.New(failure.KindIo, component, "snapshot", dir, fmt.Errorf("%w: %w", ErrManifest, err))
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return failure.Wrap(component, "snapshot", path, fmt.Errorf("%w: %w", ErrManifest, err))
	}
	return nil
}

func readSidecar(dir string) (*sidecar, error) {
	path := filepath.Join(dir, ManifestName)
	// #nosec G304 -- inside the backup root
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, failure.New(failure.KindIo, component, "manifest", path, fmt.Errorf("%w: %w", ErrManifest, err))
	}
	return &sc, nil
}
