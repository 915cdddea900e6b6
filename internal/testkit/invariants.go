// Package testkit holds checks shared by the parser and context tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"rectify/internal/ast"
	"rectify/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed file:
// 1) file.Span covers the whole content of sf
// 2) every node span is well-formed and inside the file bounds
// 3) item spans are non-empty, in source order and do not overlap
func CheckSpanInvariants(tree *ast.File, sf *source.File) error {
	if tree == nil || sf == nil {
		return fmt.Errorf("nil tree or file")
	}
	size, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("content length: %w", err)
	}

	// 1) file span
	if fs := tree.Span(); fs.Start != 0 || fs.End != size {
		return fmt.Errorf("file span %v does not cover content of %d bytes", fs, size)
	}

	// 2) все узлы внутри файла
	var bad error
	ast.Inspect(tree, func(n ast.Node) bool {
		if n == nil || bad != nil {
			return bad == nil
		}
		sp := n.Span()
		if sp.End < sp.Start {
			bad = fmt.Errorf("%T span is inverted: %v", n, sp)
		} else if sp.End > size {
			bad = fmt.Errorf("%T span %v exceeds file length %d", n, sp, size)
		}
		return bad == nil
	})
	if bad != nil {
		return bad
	}

	// 3) items
	var prev source.Span
	for i, it := range tree.Items {
		sp := it.Span()
		if sp.Empty() {
			return fmt.Errorf("item %d (%T) has an empty span", i, it)
		}
		if i > 0 && sp.Start < prev.End {
			return fmt.Errorf("item %d (%T) span %v overlaps the previous item %v", i, it, sp, prev)
		}
		prev = sp
	}
	return nil
}
