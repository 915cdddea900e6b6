package backup

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/nightlyone/lockfile"

	"rectify/internal/failure"
	"rectify/internal/trace"
)

// Entry is one snapshot directory found on disk.
type Entry struct {
	Name      string
	Path      string
	Timestamp time.Time
	FixType   string
	Files     int
	ID        string // from the sidecar, if readable
	Success   bool
	InFlight  bool
}

// List returns the snapshot directories under the backup root, newest
// first. Directories whose names do not parse are ignored. A missing backup
// root is an empty list.
func (m *Manager) List() ([]Entry, error) {
	ents, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, failure.Wrap(component, "list", m.dir, err)
	}
	var out []Entry
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		t, fixType, ok := ParseDirName(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		ent := Entry{
			Name:      e.Name(),
			Path:      path,
			Timestamp: t,
			FixType:   fixType,
			Files:     countFiles(path),
			InFlight:  m.inFlight(path) || lockedElsewhere(path),
		}
		if sc, err := readSidecar(path); err == nil {
			ent.ID, ent.Success = sc.ID, sc.Success
		}
		out = append(out, ent)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

func countFiles(dir string) int {
	n := 0
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() && d.Name() != ManifestName && d.Name() != LockName {
			n++
		}
		return nil
	})
	return n
}

// lockedElsewhere reports whether another live process holds the in-flight
// lock of dir.
func lockedElsewhere(dir string) bool {
	path := filepath.Join(dir, LockName)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	lock, err := lockfile.New(path)
	if err != nil {
		return true
	}
	owner, err := lock.GetOwner()
	if err != nil {
		// мёртвый или испорченный владелец: каталог свободен
		return !errors.Is(err, lockfile.ErrDeadOwner) && !errors.Is(err, lockfile.ErrInvalidPid)
	}
	return owner.Pid != os.Getpid()
}

// CleanupResult lists what Cleanup did.
type CleanupResult struct {
	Removed  []string
	Archived []string
	Skipped  []string // in flight
}

// Cleanup removes snapshot directories beyond the keep most recent. A
// directory of an operation still in flight, in this process or another, is
// never removed. With an archive directory configured, each evicted
// directory is written to <archive>/<name>.tar.zst first; an archive failure
// keeps the directory.
func (m *Manager) Cleanup(ctx context.Context, keep int) (CleanupResult, error) {
	var res CleanupResult
	if keep < 0 {
		return res, fmt.Errorf("backup: cleanup: negative keep %d", keep)
	}
	ents, err := m.List()
	if err != nil {
		return res, err
	}
	if len(ents) <= keep {
		return res, nil
	}
	ctx, span := trace.Start(ctx, trace.ScopeRun, "backup.cleanup")
	var errs []error
	for _, e := range ents[keep:] {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if e.InFlight {
			res.Skipped = append(res.Skipped, e.Path)
			continue
		}
		// симлинк на месте каталога не удаляем
		info, err := os.Lstat(e.Path)
		if err != nil || info.Mode()&os.ModeSymlink != 0 || !info.IsDir() {
			continue
		}
		if m.archiveDir != "" {
			if err := m.archive(e); err != nil {
				errs = append(errs, failure.Wrap(component, "archive", e.Path, err))
				continue
			}
			res.Archived = append(res.Archived, filepath.Join(m.archiveDir, e.Name+".tar.zst"))
		}
		if err := os.RemoveAll(e.Path); err != nil {
			errs = append(errs, failure.Wrap(component, "cleanup", e.Path, err))
			continue
		}
		trace.Note(ctx, trace.ScopeRun, "backup.removed", e.Name)
		res.Removed = append(res.Removed, e.Path)
	}
	span.End(fmt.Sprintf("removed %d, skipped %d", len(res.Removed), len(res.Skipped)))
	return res, errors.Join(errs...)
}

// archive writes the directory of e as a zstd-compressed tarball.
func (m *Manager) archive(e Entry) (err error) {
	if err := os.MkdirAll(m.archiveDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(m.archiveDir, e.Name+".tar.zst")
	f, err := os.CreateTemp(m.archiveDir, "."+e.Name+"-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)
	err = filepath.WalkDir(e.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == LockName || !(d.IsDir() || d.Type().IsRegular()) {
			return nil
		}
		rel, err := filepath.Rel(filepath.Dir(e.Path), path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// #nosec G304 -- inside the backup root
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, src)
		_ = src.Close()
		return err
	})
	if err != nil {
		_ = tw.Close()
		_ = zw.Close()
		return err
	}
	if err = tw.Close(); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
