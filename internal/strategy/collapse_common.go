package strategy

import (
	"sort"

	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// collapseChildRef pairs a child's own name (the sort key spec.md §4.4
// requires) with its already-encoded S(child) string, so a directory
// frame can be combined without re-deriving the name from the string.
type collapseChildRef struct {
	name string
	str  string
}

// collapseFrame is one directory's folding state in the pool-collapse
// strategies of spec.md §4.10: no tree is retained, so each directory's
// contribution to its parent is computed and discarded the moment its
// last child resolves. remaining counts entries not yet folded in
// (files as they're hashed, subdirectories as they themselves resolve);
// listed distinguishes "not listed yet" from "listed with zero
// entries", which must resolve immediately.
type collapseFrame struct {
	relPath   string
	name      string
	parentIdx int

	listed    bool
	remaining int
	children  []collapseChildRef
	fileCount int64
	byteCount int64
}

// combineFrame sorts a resolved frame's children by name -- the order
// spec.md §4.4's combine function requires -- and folds them into a
// single CombineResult.
func combineFrame(children []collapseChildRef, fileCount, byteCount int64) zarrtree.CombineResult {
	sort.Slice(children, func(i, j int) bool { return children[i].name < children[j].name })
	strs := make([]string, len(children))
	for i, c := range children {
		strs[i] = c.str
	}
	return zarrtree.Combine(strs, fileCount, byteCount)
}
