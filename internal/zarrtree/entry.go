package zarrtree

import "sort"

// Node is implemented by *FileEntry and *DirNode, the two kinds of value a
// DirNode's Children map may hold. Summary reports the fields the combine
// function needs: the child's path relative to the traversal root, its
// digest, and its aggregate file/byte counts (1 and its own size, for a
// file).
type Node interface {
	Summary() (relPath, digestHex string, fileCount, byteCount int64)
}

// FileEntry is the tuple (relpath, digest, size) described in spec.md §3.
type FileEntry struct {
	RelPath string
	Digest  FileDigest
	Size    int64
}

func (f *FileEntry) Summary() (string, string, int64, int64) {
	return f.RelPath, f.Digest.Hex(), 1, f.Size
}

// DirNode is the in-memory directory node used by the tree-building
// strategies (iter-breadth, pool-tree, fastasync). DigestHex, FileCount,
// and ByteCount are only valid once the node (and every descendant) has
// been finalized by Builder.Finalize.
type DirNode struct {
	Name      string
	RelPath   string
	Children  map[string]Node
	DigestHex string
	FileCount int64
	ByteCount int64
}

// NewDirNode creates an empty directory node. name is the final path
// component ("" for the root); relPath is its path relative to the
// traversal root ("" for the root).
func NewDirNode(name, relPath string) *DirNode {
	return &DirNode{Name: name, RelPath: relPath, Children: make(map[string]Node)}
}

func (d *DirNode) Summary() (string, string, int64, int64) {
	return d.RelPath, d.DigestHex, d.FileCount, d.ByteCount
}

// Walk visits d and then every descendant, directories before their
// children's siblings are exhausted, each directory's children in
// sortedChildNames order. Used by the "tree" strategy to render the
// full structure after Finalize.
func (d *DirNode) Walk(visit func(Node)) {
	visit(d)
	for _, name := range d.sortedChildNames() {
		child := d.Children[name]
		if sub, ok := child.(*DirNode); ok {
			sub.Walk(visit)
		} else {
			visit(child)
		}
	}
}

// sortedChildNames returns the child map's keys in lexicographic byte
// order, the order spec.md §4.4 requires children be presented to the
// combine function in.
func (d *DirNode) sortedChildNames() []string {
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
