package proposal

import (
	"fmt"
	"strconv"
	"strings"

	"rectify/internal/ast"
	"rectify/internal/astctx"
	"rectify/internal/docs"
	"rectify/internal/fix"
	"rectify/internal/similarity"
)

// stdImportConfidence is the confidence of importing a well-known std name.
const stdImportConfidence = 0.85

// unresolvedName returns the name the compiler could not resolve.
func unresolvedName(c *astctx.Context) string {
	if names := c.Diagnostic.Names(); len(names) > 0 {
		return names[0]
	}
	if pr, ok := c.Node.(*astctx.PathRef); ok && len(pr.Segments) > 0 {
		return pr.Segments[0]
	}
	return ""
}

// wantsType reports whether the unresolved name is used as a type.
func wantsType(c *astctx.Context) bool {
	switch c.Diagnostic.Code {
	case "E0412", "E0422":
		return true
	}
	if pr, ok := c.Node.(*astctx.PathRef); ok {
		if _, isType := pr.Node.(*ast.PathType); isType {
			return true
		}
	}
	m := c.Diagnostic.Message
	return strings.Contains(m, "undeclared type") || strings.Contains(m, "cannot find type")
}

// fnNames lists the functions declared at the top level of the file.
func fnNames(tree *ast.File) []string {
	var out []string
	for _, it := range tree.Items {
		if fn, ok := it.(*ast.FnItem); ok {
			out = append(out, fn.Name.Name)
		}
	}
	return out
}

// similarName replaces an unresolved name with a similar visible one:
// locals and functions for values, declared and imported types for types.
func similarName(in *input) ([]draft, error) {
	c := in.c
	name := unresolvedName(c)
	if name == "" || strings.Contains(name, "::") {
		return nil, nil
	}
	var cands []string
	if wantsType(c) {
		cands = c.Scope.TypeNames()
	} else {
		cands = append(c.Scope.Names(), fnNames(c.Tree)...)
		if startsUpper(name) {
			cands = append(cands, c.Scope.TypeNames()...)
		}
	}

	unit := c.Node.Span()
	sp := nameSpan(c.Source, unit, name)
	var out []draft
	for _, s := range similarity.Suggest(name, cands, in.g.threshold) {
		out = append(out, draft{
			unit:       unit,
			edits:      []fix.Edit{fix.Replace(sp, s.Name, name)},
			confidence: s.Score,
			strategy:   Generic{Description: fmt.Sprintf("replace `%s` with `%s`", name, s.Name)},
			meta:       map[string]string{"similarity": strconv.FormatFloat(s.Score, 'f', 3, 64)},
		})
	}
	return out, nil
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// stdImport imports a well-known standard library name.
func stdImport(in *input) ([]draft, error) {
	c := in.c
	name := unresolvedName(c)
	if i := strings.Index(name, "::"); i >= 0 {
		name = name[:i]
	}
	if name == "" || docs.IsPrelude(name) {
		return nil, nil
	}
	path, ok := docs.StdPath(name)
	if !ok || imported(c, path) {
		return nil, nil
	}
	return []draft{{
		edits:      []fix.Edit{useInsertion(c, path)},
		confidence: stdImportConfidence,
		strategy:   Generic{Description: "import `" + path + "`"},
		docSource:  "builtin",
	}}, nil
}
