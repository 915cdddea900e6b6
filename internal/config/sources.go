package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

func validPattern(p string) bool {
	return p != "" && doublestar.ValidatePattern(p)
}

// Matches reports whether rel, a slash-separated path relative to the
// project root, is included and not excluded.
func (p Project) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range p.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	for _, pat := range p.Include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// SourceFiles lists the absolute paths of the project's included files,
// sorted.
func (p Project) SourceFiles() ([]string, error) {
	fsys := os.DirFS(p.Root)
	seen := make(map[string]struct{})
	var out []string
	for _, pat := range p.Include {
		matches, err := doublestar.Glob(fsys, pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("config: glob %q: %w", pat, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup || !p.Matches(m) {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, filepath.Join(p.Root, filepath.FromSlash(m)))
		}
	}
	slices.Sort(out)
	return out, nil
}

// Rel returns path relative to the project root, slash-separated, and
// whether it lies inside the root.
func (p Project) Rel(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
