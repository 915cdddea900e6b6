// Package vcs reads the git state of files being backed up.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// ErrNoRepository is returned by Open outside a git work tree.
var ErrNoRepository = errors.New("vcs: not a git repository")

// Git annotates files with their working-tree status.
type Git struct {
	root string
	repo *git.Repository
}

// Open finds the repository containing path.
func Open(path string) (*Git, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNoRepository
		}
		return nil, fmt.Errorf("vcs: open %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("vcs: worktree: %w", err)
	}
	return &Git{root: wt.Filesystem.Root(), repo: repo}, nil
}

// Root returns the top of the work tree.
func (g *Git) Root() string { return g.root }

// Head returns the abbreviated hash of HEAD, or "" in an empty repository.
func (g *Git) Head() string {
	ref, err := g.repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()[:7]
}

// Annotate returns "<status>" or "<status>@<head>" for every path. Paths
// outside the work tree are left out. It implements backup.Annotator.
func (g *Git) Annotate(ctx context.Context, paths []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("vcs: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("vcs: status: %w", err)
	}
	head := g.Head()
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		rel, ok := g.rel(p)
		if !ok {
			continue
		}
		s := "clean"
		if fs, tracked := status[rel]; tracked {
			s = describe(fs)
		}
		if head != "" {
			s += "@" + head
		}
		out[p] = s
	}
	return out, nil
}

func (g *Git) rel(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	root := g.root
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	if a, err := filepath.EvalSymlinks(abs); err == nil {
		abs = a
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// describe prefers the work-tree state over the staging state.
func describe(fs *git.FileStatus) string {
	if fs.Worktree == git.Untracked {
		return "untracked"
	}
	if fs.Worktree != git.Unmodified {
		return statusName(fs.Worktree)
	}
	if fs.Staging != git.Unmodified {
		return "staged-" + statusName(fs.Staging)
	}
	return "clean"
}

func statusName(code git.StatusCode) string {
	switch code {
	case git.Unmodified:
		return "unmodified"
	case git.Untracked:
		return "untracked"
	case git.Modified:
		return "modified"
	case git.Added:
		return "added"
	case git.Deleted:
		return "deleted"
	case git.Renamed:
		return "renamed"
	case git.Copied:
		return "copied"
	case git.UpdatedButUnmerged:
		return "unmerged"
	default:
		return "unknown"
	}
}
