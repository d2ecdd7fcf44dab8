package strategy

import (
	"context"
	"sync"

	"github.com/jwodder/zarrgallery/internal/ignore"
	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// recursiveDepth is the "recursive" strategy of spec.md §4.8: the same
// semantics as iterDepth, using the call stack for frames instead of an
// explicit one. Recursion depth equals tree depth, acceptable since real
// zarr trees are shallow.
type recursiveDepth struct{}

func (recursiveDepth) Run(ctx context.Context, root string, opts Options) (Summary, error) {
	absRoot, err := statRoot(root)
	if err != nil {
		return Summary{}, err
	}
	matcher := matcherFor(opts)
	pool := newBufferPool()

	res, err := combineDirRecursive(ctx, absRoot, "", opts, matcher, pool)
	if err != nil {
		return Summary{}, err
	}
	return Summary{RootDigestHex: res.DigestHex, FileCount: res.FileCount, ByteCount: res.ByteCount}, nil
}

func combineDirRecursive(ctx context.Context, absPath, relPath string, opts Options, matcher ignore.Matcher, pool *sync.Pool) (zarrtree.CombineResult, error) {
	if err := ctx.Err(); err != nil {
		return zarrtree.CombineResult{}, err
	}
	entries, err := listEntries(absPath, relPath, opts, matcher)
	if err != nil {
		return zarrtree.CombineResult{}, err
	}

	childStrings := make([]string, 0, len(entries))
	var fileCount, byteCount int64
	for _, e := range entries {
		if e.IsDir {
			res, err := combineDirRecursive(ctx, e.AbsPath, e.RelPath, opts, matcher, pool)
			if err != nil {
				return zarrtree.CombineResult{}, err
			}
			// A directory with no files beneath it contributes nothing.
			if res.FileCount == 0 {
				continue
			}
			childStrings = append(childStrings, zarrtree.ChildString(e.RelPath, res.DigestHex, res.FileCount, res.ByteCount))
			fileCount += res.FileCount
			byteCount += res.ByteCount
			continue
		}
		digest, err := hashFile(pool, e.AbsPath)
		if err != nil {
			return zarrtree.CombineResult{}, err
		}
		logCompletion(e.RelPath, digest.Hex())
		childStrings = append(childStrings, zarrtree.ChildString(e.RelPath, digest.Hex(), 1, e.Size))
		fileCount++
		byteCount += e.Size
	}
	res := zarrtree.Combine(childStrings, fileCount, byteCount)
	logCompletion(relPath, res.DigestHex)
	return res, nil
}
