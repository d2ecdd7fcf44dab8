package zarrtree

import (
	"fmt"
	"strings"

	"github.com/jwodder/zarrgallery/internal/walkerr"
)

// Builder incrementally assembles an in-memory directory tree from a
// stream of FileEntry values, then computes the root checksum by
// post-order combine (spec.md §4.5). A Builder is not safe for
// concurrent use; strategies that use it feed it from a single
// aggregator goroutine.
type Builder struct {
	root      *DirNode
	seen      map[string]struct{}
	finalized bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		root: NewDirNode("", ""),
		seen: make(map[string]struct{}),
	}
}

// Insert creates intermediate DirNodes along entry.RelPath as needed and
// places entry at the leaf. Duplicate insertions at the same RelPath are
// a fatal walkerr.Duplicate error, as is inserting a file at a path that
// already holds a directory (or vice versa).
func (b *Builder) Insert(entry FileEntry) error {
	if _, dup := b.seen[entry.RelPath]; dup {
		return walkerr.New(walkerr.Duplicate, entry.RelPath, fmt.Errorf("duplicate relpath"))
	}
	b.seen[entry.RelPath] = struct{}{}

	components := strings.Split(entry.RelPath, "/")
	dir := b.root
	relSoFar := ""
	for _, c := range components[:len(components)-1] {
		if relSoFar == "" {
			relSoFar = c
		} else {
			relSoFar = relSoFar + "/" + c
		}
		existing, ok := dir.Children[c]
		if !ok {
			next := NewDirNode(c, relSoFar)
			dir.Children[c] = next
			dir = next
			continue
		}
		next, ok := existing.(*DirNode)
		if !ok {
			return walkerr.New(walkerr.Duplicate, entry.RelPath, fmt.Errorf("component %q of path is already a file", c))
		}
		dir = next
	}

	leaf := components[len(components)-1]
	if _, exists := dir.Children[leaf]; exists {
		return walkerr.New(walkerr.Duplicate, entry.RelPath, fmt.Errorf("duplicate relpath"))
	}
	e := entry
	dir.Children[leaf] = &e
	return nil
}

// Finalize post-order visits every node, computing DigestHex/FileCount/
// ByteCount per the combine function in combine.go, and returns the
// root's aggregate. It must be called exactly once; subsequent calls
// return an error.
func (b *Builder) Finalize() (rootDigestHex string, fileCount, byteCount int64, err error) {
	if b.finalized {
		return "", 0, 0, fmt.Errorf("builder already finalized")
	}
	b.finalized = true
	finalizeDir(b.root)
	return b.root.DigestHex, b.root.FileCount, b.root.ByteCount, nil
}

// Root returns the finalized tree's root node, for strategies (such as
// the "tree" rendering) that need to walk the full structure rather
// than just the aggregate counts Finalize returns. It must only be
// called after Finalize.
func (b *Builder) Root() (*DirNode, error) {
	if !b.finalized {
		return nil, fmt.Errorf("zarrtree: builder not finalized")
	}
	return b.root, nil
}

func finalizeDir(d *DirNode) {
	names := d.sortedChildNames()
	childStrings := make([]string, 0, len(names))
	var totalFiles, totalBytes int64
	for _, name := range names {
		child := d.Children[name]
		if sub, ok := child.(*DirNode); ok {
			finalizeDir(sub)
		}
		relPath, digestHex, fc, bc := child.Summary()
		childStrings = append(childStrings, ChildString(relPath, digestHex, fc, bc))
		totalFiles += fc
		totalBytes += bc
	}
	res := Combine(childStrings, totalFiles, totalBytes)
	d.DigestHex = res.DigestHex
	d.FileCount = res.FileCount
	d.ByteCount = res.ByteCount
}
