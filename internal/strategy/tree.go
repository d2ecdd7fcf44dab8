package strategy

import (
	"container/list"
	"context"

	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// treeStrategy is the "tree" strategy of spec.md §4 / §6: it walks
// breadth-first exactly like iterBreadth (the comparison baseline every
// other strategy is checked against), but additionally retains the
// finalized tree so the CLI can render every relpath's digest, not just
// the root's.
type treeStrategy struct{}

func (treeStrategy) Run(ctx context.Context, root string, opts Options) (Summary, error) {
	absRoot, err := statRoot(root)
	if err != nil {
		return Summary{}, err
	}
	matcher := matcherFor(opts)
	pool := newBufferPool()
	builder := zarrtree.NewBuilder()

	queue := list.New()
	queue.PushBack(breadthDir{absPath: absRoot, relPath: ""})

	for queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		front := queue.Remove(queue.Front()).(breadthDir)

		entries, err := listEntries(front.absPath, front.relPath, opts, matcher)
		if err != nil {
			return Summary{}, err
		}
		for _, e := range entries {
			if e.IsDir {
				queue.PushBack(breadthDir{absPath: e.AbsPath, relPath: e.RelPath})
				continue
			}
			digest, err := hashFile(pool, e.AbsPath)
			if err != nil {
				return Summary{}, err
			}
			if err := builder.Insert(zarrtree.FileEntry{RelPath: e.RelPath, Digest: digest, Size: e.Size}); err != nil {
				return Summary{}, err
			}
		}
	}

	rootDigest, files, bytes, err := builder.Finalize()
	if err != nil {
		return Summary{}, err
	}

	treeRoot, err := builder.Root()
	if err != nil {
		return Summary{}, err
	}
	var lines []TreeLine
	treeRoot.Walk(func(n zarrtree.Node) {
		relPath, digestHex, fc, bc := n.Summary()
		logCompletion(relPath, digestHex)
		lines = append(lines, TreeLine{RelPath: relPath, DigestHex: digestHex, FileCount: fc, ByteCount: bc})
	})

	return Summary{RootDigestHex: rootDigest, FileCount: files, ByteCount: bytes, Tree: lines}, nil
}
