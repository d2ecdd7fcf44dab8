package strategy

import (
	"container/list"
	"context"

	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// iterBreadth is the "breadth-first" strategy of spec.md §4.6: a single
// goroutine walks the tree breadth-first with an explicit queue, hashing
// files synchronously and feeding a zarrtree.Builder that is finalized
// once the queue drains.
type iterBreadth struct{}

type breadthDir struct {
	absPath string
	relPath string
}

func (iterBreadth) Run(ctx context.Context, root string, opts Options) (Summary, error) {
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
	logTreeCompletions(builder)
	return Summary{RootDigestHex: rootDigest, FileCount: files, ByteCount: bytes}, nil
}
