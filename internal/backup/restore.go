package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"rectify/internal/failure"
	"rectify/internal/fix"
	"rectify/internal/trace"
)

// RestoreAll copies every backup of op over its original. All backups are
// verified before the first original is touched; a checksum mismatch stops
// the restore and is returned as *ChecksumMismatchError.
func (m *Manager) RestoreAll(ctx context.Context, op *Operation) error {
	if op == nil || !op.Success {
		path := ""
		if op != nil {
			path = op.Directory
		}
		return failure.New(failure.KindIo, component, "restore", path, ErrUnusable)
	}
	return m.restore(ctx, op.Manifests)
}

// RestoreDirectory restores a snapshot directory without the Operation that
// made it, for recovery after a crash. The sidecar decides what goes where;
// a directory without one is mapped back below the project root by relative
// path, with fingerprints taken from the backups themselves.
func (m *Manager) RestoreDirectory(ctx context.Context, dir string) (*Operation, error) {
	if !filepath.IsAbs(dir) {
		if _, err := os.Stat(dir); err != nil {
			dir = filepath.Join(m.dir, dir)
		}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, failure.Wrap(component, "restore", dir, err)
	}
	if !info.IsDir() {
		return nil, failure.New(failure.KindIo, component, "restore", dir, errors.New("not a directory"))
	}
	op, err := m.load(dir)
	if err != nil {
		return nil, err
	}
	if len(op.Manifests) == 0 {
		return op, failure.New(failure.KindIo, component, "restore", dir, ErrUnusable)
	}
	return op, m.restore(ctx, op.Manifests)
}

// load rebuilds the operation stored in dir. Only manifests recorded in the
// sidecar are returned, so a failed snapshot still restores the files it
// did verify.
func (m *Manager) load(dir string) (*Operation, error) {
	t, fixType, _ := ParseDirName(filepath.Base(dir))
	sc, err := readSidecar(dir)
	switch {
	case err == nil:
		return &Operation{
			ID:        sc.ID,
			Manifests: sc.Manifests,
			Directory: dir,
			Timestamp: sc.Timestamp,
			FixType:   sc.FixType,
			Success:   sc.Success,
			Warnings:  sc.Warnings,
		}, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	op := &Operation{Directory: dir, Timestamp: t, FixType: fixType}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == externalDir {
				// без манифеста исходный путь внешних файлов неизвестен
				op.Warnings = append(op.Warnings, "skipped "+path)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || d.Name() == LockName || d.Name() == ManifestName {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sum, size, err := FileChecksum(path)
		if err != nil {
			return err
		}
		op.Manifests = append(op.Manifests, Manifest{
			OriginalPath: filepath.Join(m.root, rel),
			BackupPath:   path,
			Timestamp:    t,
			FileSize:     size,
			Checksum:     sum,
			FixType:      fixType,
		})
		return nil
	})
	if err != nil {
		return nil, failure.Wrap(component, "restore", dir, err)
	}
	op.Success = len(op.Manifests) > 0
	return op, nil
}

// Verify recomputes the fingerprint of one backup.
func Verify(man Manifest) error {
	got, _, err := FileChecksum(man.BackupPath)
	if err != nil {
		return failure.Wrap(component, "verify", man.BackupPath, err)
	}
	if got != man.Checksum {
		return failure.New(failure.KindChecksumMismatch, component, "verify", man.BackupPath,
			&ChecksumMismatchError{Path: man.BackupPath, Expected: man.Checksum, Actual: got})
	}
	return nil
}

func (m *Manager) restore(ctx context.Context, mans []Manifest) error {
	ctx, span := trace.Start(ctx, trace.ScopeFile, "backup.restore")
	for _, man := range mans {
		if err := Verify(man); err != nil {
			span.End("checksum mismatch")
			return err
		}
	}
	for _, man := range mans {
		if err := ctx.Err(); err != nil {
			span.End("cancelled")
			return failure.Wrap(component, "restore", man.OriginalPath, err)
		}
		if err := restoreFile(man); err != nil {
			span.End("failed")
			return err
		}
		trace.Note(ctx, trace.ScopeFile, "backup.restored", man.OriginalPath)
	}
	span.End(fmt.Sprintf("%d files", len(mans)))
	return nil
}

func restoreFile(man Manifest) error {
	// #nosec G304 -- path recorded by the snapshot
	data, err := os.ReadFile(man.BackupPath)
	if err != nil {
		return failure.Wrap(component, "restore", man.BackupPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(man.OriginalPath), 0o755); err != nil {
		return failure.Wrap(component, "restore", man.OriginalPath, err)
	}
	if err := fix.WriteFile(man.OriginalPath, data); err != nil {
		return failure.Wrap(component, "restore", man.OriginalPath, err)
	}
	got, _, err := FileChecksum(man.OriginalPath)
	if err != nil {
		return failure.Wrap(component, "restore", man.OriginalPath, err)
	}
	if got != man.Checksum {
		return failure.New(failure.KindChecksumMismatch, component, "restore", man.OriginalPath,
			&ChecksumMismatchError{Path: man.OriginalPath, Expected: man.Checksum, Actual: got})
	}
	return nil
}
