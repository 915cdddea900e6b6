package ast

import "strings"

// ImportPath is one flattened leaf of a use tree.
type ImportPath struct {
	Path  string // std::io::Write, std::fmt::*
	Name  string // имя, под которым путь виден в области: Write, alias, или "*"
	Alias string
}

// Flatten expands nested groups into leaf paths:
// use std::{io::{self, Write}, fmt as f}; ->
// std::io (io), std::io::Write (Write), std::fmt (f).
func (u *UseTree) Flatten() []ImportPath {
	var out []ImportPath
	u.flatten(nil, &out)
	return out
}

func (u *UseTree) flatten(prefix []string, out *[]ImportPath) {
	if u == nil {
		return
	}
	full := append(append([]string(nil), prefix...), u.Prefix...)
	switch u.Kind {
	case UseGlob:
		*out = append(*out, ImportPath{Path: joinPath(append(full, "*")), Name: "*"})
	case UseGroup:
		for _, c := range u.Children {
			c.flatten(full, out)
		}
	default:
		if len(full) == 0 {
			return
		}
		// "self" внутри группы ссылается на сам префикс
		if full[len(full)-1] == "self" && len(full) > 1 {
			full = full[:len(full)-1]
		}
		name := full[len(full)-1]
		if u.Alias != "" {
			name = u.Alias
		}
		*out = append(*out, ImportPath{Path: joinPath(full), Name: name, Alias: u.Alias})
	}
}

func joinPath(segs []string) string {
	return strings.Join(segs, "::")
}

// Imports flattens every use item in items (not descending into modules or functions).
func Imports(items []Item) []ImportPath {
	var out []ImportPath
	for _, it := range items {
		if u, ok := it.(*UseItem); ok {
			out = append(out, u.Tree.Flatten()...)
		}
	}
	return out
}
