package strategy

import (
	"context"

	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// iterDepth is the "depth-first" strategy of spec.md §4.7: a single
// goroutine walks the tree depth-first using an explicit stack of
// pending directory frames, combining each directory's checksum as soon
// as its entries are exhausted. No full tree is retained.
type iterDepth struct{}

type depthFrame struct {
	absPath string
	relPath string

	entries []dirEntry
	listed  bool
	idx     int

	childStrings []string
	fileCount    int64
	byteCount    int64
}

func (iterDepth) Run(ctx context.Context, root string, opts Options) (Summary, error) {
	absRoot, err := statRoot(root)
	if err != nil {
		return Summary{}, err
	}
	matcher := matcherFor(opts)
	pool := newBufferPool()

	stack := []*depthFrame{{absPath: absRoot, relPath: ""}}

	for {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		top := stack[len(stack)-1]

		if !top.listed {
			entries, err := listEntries(top.absPath, top.relPath, opts, matcher)
			if err != nil {
				return Summary{}, err
			}
			top.entries = entries
			top.listed = true
		}

		if top.idx >= len(top.entries) {
			res := zarrtree.Combine(top.childStrings, top.fileCount, top.byteCount)
			logCompletion(top.relPath, res.DigestHex)
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return Summary{RootDigestHex: res.DigestHex, FileCount: res.FileCount, ByteCount: res.ByteCount}, nil
			}
			parent := stack[len(stack)-1]
			// A directory with no files beneath it contributes nothing,
			// just as it never appears in a Builder fed only with files.
			if res.FileCount > 0 {
				parent.childStrings = append(parent.childStrings,
					zarrtree.ChildString(top.relPath, res.DigestHex, res.FileCount, res.ByteCount))
				parent.fileCount += res.FileCount
				parent.byteCount += res.ByteCount
			}
			parent.idx++
			continue
		}

		e := top.entries[top.idx]
		if e.IsDir {
			stack = append(stack, &depthFrame{absPath: e.AbsPath, relPath: e.RelPath})
			continue
		}

		digest, err := hashFile(pool, e.AbsPath)
		if err != nil {
			return Summary{}, err
		}
		logCompletion(e.RelPath, digest.Hex())
		top.childStrings = append(top.childStrings, zarrtree.ChildString(e.RelPath, digest.Hex(), 1, e.Size))
		top.fileCount++
		top.byteCount += e.Size
		top.idx++
	}
}
