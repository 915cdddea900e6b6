package proposal

import (
	"strings"

	"rectify/internal/ast"
	"rectify/internal/astctx"
	"rectify/internal/fix"
	"rectify/internal/source"
)

const (
	removeImportConfidence = 0.95
	removeMemberConfidence = 0.9
	underscoreConfidence   = 0.9
	removeMutConfidence    = 0.95
	// Removing a let statement: effect-free initialisers only need review;
	// anything else may drop a side effect.
	removeLetConfidence       = 0.7
	removeLetUnsafeConfidence = 0.6
)

// removeImport deletes an unused import: the whole use item, or only the
// unused members of a group.
func removeImport(in *input) ([]draft, error) {
	c := in.c
	use, ok := find[*ast.UseItem](c.Tree, c.Target)
	if !ok || use.Tree == nil {
		return nil, nil
	}
	unused := c.Diagnostic.Names()
	group, member := groupMember(use.Tree, c.Target)
	if group != nil && !allLeavesNamed(use.Tree.Flatten(), unused) {
		return removeMembers(c, use, group, member, unused)
	}
	return []draft{{
		edits:      []fix.Edit{fix.DeleteLine(c.Source, use.Sp)},
		confidence: removeImportConfidence,
		strategy:   Generic{Description: "remove unused import `" + strings.Join(unused, "`, `") + "`"},
		delete:     true,
	}}, nil
}

func removeImportIfUnused(in *input) ([]draft, error) {
	if !strings.HasPrefix(in.c.Diagnostic.Message, "unused import") {
		return nil, nil
	}
	return removeImport(in)
}

// groupMember returns the innermost group of t with a child containing sp.
func groupMember(t *ast.UseTree, sp source.Span) (group, member *ast.UseTree) {
	if t.Kind != ast.UseGroup {
		return nil, nil
	}
	for _, ch := range t.Children {
		if !ch.Sp.Contains(sp) {
			continue
		}
		if g, m := groupMember(ch, sp); g != nil {
			return g, m
		}
		return t, ch
	}
	return nil, nil
}

// named reports whether a group member is one of the unused names.
func named(f *source.File, ch *ast.UseTree, unused []string) bool {
	text := f.Text(ch.Sp)
	for _, n := range unused {
		if n == text || lastSegment(n) == lastSegment(text) && ch.Kind == ast.UseSimple {
			return true
		}
	}
	return false
}

func allLeavesNamed(leaves []ast.ImportPath, unused []string) bool {
	for _, l := range leaves {
		found := false
		for _, n := range unused {
			if l.Path == n || l.Name == lastSegment(n) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "::"); i >= 0 {
		return p[i+2:]
	}
	return p
}

// removeMembers rewrites group without its unused members. A group left
// with one member loses its braces.
func removeMembers(c *astctx.Context, use *ast.UseItem, group, member *ast.UseTree, unused []string) ([]draft, error) {
	f := c.Source
	var kept, removed []string
	for _, ch := range group.Children {
		if ch == member || named(f, ch, unused) {
			removed = append(removed, f.Text(ch.Sp))
			continue
		}
		kept = append(kept, f.Text(ch.Sp))
	}
	if len(kept) == 0 || len(removed) == 0 {
		return nil, nil
	}
	text := f.Text(group.Sp)
	open := strings.IndexByte(text, '{')
	if open < 0 {
		return nil, nil
	}
	prefix := text[:open]
	repl := prefix + "{" + strings.Join(kept, ", ") + "}"
	if len(kept) == 1 {
		repl = prefix + kept[0]
		// a::{self} -> a
		if kept[0] == "self" && strings.HasSuffix(prefix, "::") {
			repl = strings.TrimSuffix(prefix, "::")
		}
	}
	return []draft{{
		unit:       use.Sp,
		edits:      []fix.Edit{fix.Replace(group.Sp, repl, text)},
		confidence: removeMemberConfidence,
		strategy:   Generic{Description: "remove unused import `" + strings.Join(removed, "`, `") + "`"},
		delete:     true,
	}}, nil
}

// unusedVariable prefixes an unused binding with `_` and, for plain let
// bindings, offers to remove the statement.
func unusedVariable(in *input) ([]draft, error) {
	c := in.c
	names := c.Diagnostic.Names()
	if len(names) == 0 {
		return nil, nil
	}
	name := names[0]
	if strings.HasPrefix(name, "_") {
		return nil, nil
	}
	if fp, ok := find[*ast.FieldPat](c.Tree, c.Target); ok && fp.Shorthand && fp.Name.Name == name {
		return []draft{{
			edits:      []fix.Edit{fix.Replace(fp.Sp, name+": _", c.Source.Text(fp.Sp))},
			confidence: underscoreConfidence,
			strategy:   Generic{Description: "ignore unused field `" + name + "`"},
		}}, nil
	}
	ip, ok := find[*ast.IdentPat](c.Tree, c.Target)
	if !ok || ip.Name.Name != name {
		return nil, nil
	}

	underscore := draft{
		edits:      []fix.Edit{fix.Replace(ip.Name.Sp, "_"+name, name)},
		confidence: underscoreConfidence,
		strategy:   Generic{Description: "prefix unused variable `" + name + "` with `_`"},
	}
	let, ok := enclosing[*ast.LetStmt](c)
	if !ok || let.Pat == nil || !let.Pat.Span().Contains(ip.Sp) {
		return []draft{underscore}, nil
	}
	underscore.unit = let.Sp
	out := []draft{underscore}

	if simple, ok := let.Pat.(*ast.IdentPat); ok && simple == ip && let.Else == nil {
		conf, floor := removeLetConfidence, fix.RequiresReview
		if !effectFree(let.Init) {
			conf, floor = removeLetUnsafeConfidence, fix.Unsafe
		}
		out = append(out, draft{
			edits:      []fix.Edit{fix.DeleteLine(c.Source, let.Sp)},
			confidence: conf,
			floor:      floor,
			strategy:   Generic{Description: "remove unused variable `" + name + "`"},
			delete:     true,
		})
	}
	return out, nil
}

// removeMut drops a `mut` the compiler reports as unnecessary.
func removeMut(in *input) ([]draft, error) {
	c := in.c
	ip, ok := find[*ast.IdentPat](c.Tree, c.Target)
	if !ok || !ip.Mut {
		return nil, nil
	}
	text := c.Source.Text(source.Span{File: ip.Sp.File, Start: ip.Sp.Start, End: ip.Name.Sp.Start})
	i := indexWord(text, "mut")
	if i < 0 {
		return nil, nil
	}
	start := ip.Sp.Start + uint32(i) // #nosec G115 -- offset inside the pattern
	del := source.Span{File: ip.Sp.File, Start: start, End: ip.Name.Sp.Start}
	d := draft{
		edits:      []fix.Edit{fix.Delete(del, c.Source.Text(del))},
		confidence: removeMutConfidence,
		strategy:   Generic{Description: "remove unnecessary `mut` from `" + ip.Name.Name + "`"},
		delete:     true,
	}
	if let, ok := enclosing[*ast.LetStmt](c); ok && let.Pat != nil && let.Pat.Span().Contains(ip.Sp) {
		d.unit = let.Sp
	}
	return []draft{d}, nil
}
