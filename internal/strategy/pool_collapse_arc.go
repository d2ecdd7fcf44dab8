package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// collapseARC is the "collapsio-arc" strategy of spec.md §4.10: the
// shared-map variant. Every directory's fold state lives in an arena
// (a slice of frames, one per directory ever discovered) guarded by a
// per-frame mutex; workers from a fixed pool fold file and
// subdirectory results into a frame concurrently and, the instant a
// frame's last child resolves, propagate its S(directory) string up to
// its parent -- no tree is ever retained.
type collapseARC struct{}

func (collapseARC) Run(ctx context.Context, root string, opts Options) (Summary, error) {
	absRoot, err := statRoot(root)
	if err != nil {
		return Summary{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matcher := matcherFor(opts)
	bufPool := newBufferPool()

	type lockedFrame struct {
		mu sync.Mutex
		collapseFrame
	}

	// arenaMu guards both the append in newFrame and every lookup of
	// frames[idx] below: frames is a plain Go slice, so reading its
	// header (pointer/len/cap) while another goroutine's append grows
	// and reassigns it is a data race on the header itself, even though
	// each element is a stable *lockedFrame whose own contents are
	// separately guarded by its own mu. frameAt is the only way any
	// goroutine touches the frames variable.
	var arenaMu sync.Mutex
	frames := make([]*lockedFrame, 0, 64)
	newFrame := func(relPath, name string, parentIdx int) int {
		arenaMu.Lock()
		defer arenaMu.Unlock()
		frames = append(frames, &lockedFrame{collapseFrame: collapseFrame{relPath: relPath, name: name, parentIdx: parentIdx}})
		return len(frames) - 1
	}
	frameAt := func(idx int) *lockedFrame {
		arenaMu.Lock()
		defer arenaMu.Unlock()
		return frames[idx]
	}

	const rootIdx = 0
	newFrame("", "", -1)

	queue := newDirQueue()
	var pending atomic.Int64
	pending.Store(1)
	queue.push(queueDir{idx: rootIdx, absPath: absRoot, relPath: ""})

	resultCh := make(chan zarrtree.CombineResult, 1)
	var errOnce sync.Once
	var firstErr error
	reportErr := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
			queue.closeAll()
		})
	}

	var resolve func(idx int)
	resolve = func(idx int) {
		f := frameAt(idx)
		f.mu.Lock()
		children := f.children
		fc, bc := f.fileCount, f.byteCount
		parentIdx := f.parentIdx
		relPath, name := f.relPath, f.name
		f.mu.Unlock()

		res := combineFrame(children, fc, bc)
		logCompletion(relPath, res.DigestHex)
		if idx == rootIdx {
			resultCh <- res
			return
		}
		childStr := zarrtree.ChildString(relPath, res.DigestHex, res.FileCount, res.ByteCount)
		parent := frameAt(parentIdx)
		parent.mu.Lock()
		// A directory with no files beneath it contributes nothing.
		if res.FileCount > 0 {
			parent.children = append(parent.children, collapseChildRef{name: name, str: childStr})
			parent.fileCount += res.FileCount
			parent.byteCount += res.ByteCount
		}
		parent.remaining--
		done := parent.listed && parent.remaining == 0
		parent.mu.Unlock()
		if done {
			resolve(parentIdx)
		}
	}

	completeFile := func(idx int, name, relPath string, digest zarrtree.FileDigest, size int64) {
		logCompletion(relPath, digest.Hex())
		str := zarrtree.ChildString(relPath, digest.Hex(), 1, size)
		f := frameAt(idx)
		f.mu.Lock()
		f.children = append(f.children, collapseChildRef{name: name, str: str})
		f.fileCount++
		f.byteCount += size
		f.remaining--
		done := f.listed && f.remaining == 0
		f.mu.Unlock()
		if done {
			resolve(idx)
		}
	}

	worker := func() {
		for {
			item, ok := queue.pop()
			if !ok {
				return
			}
			func() {
				defer func() {
					if pending.Add(-1) == 0 {
						queue.closeAll()
					}
				}()
				if ctx.Err() != nil {
					return
				}
				entries, err := listEntries(item.absPath, item.relPath, opts, matcher)
				if err != nil {
					reportErr(err)
					return
				}

				f := frameAt(item.idx)
				f.mu.Lock()
				f.remaining = len(entries)
				f.listed = true
				immediateDone := f.remaining == 0
				f.mu.Unlock()

				for _, e := range entries {
					if ctx.Err() != nil {
						return
					}
					if e.IsDir {
						childIdx := newFrame(e.RelPath, e.Name, item.idx)
						pending.Add(1)
						queue.push(queueDir{idx: childIdx, absPath: e.AbsPath, relPath: e.RelPath})
						continue
					}
					digest, err := hashFile(bufPool, e.AbsPath)
					if err != nil {
						reportErr(err)
						return
					}
					completeFile(item.idx, e.Name, e.RelPath, digest, e.Size)
				}
				if immediateDone {
					resolve(item.idx)
				}
			}()
		}
	}

	var wg sync.WaitGroup
	n := opts.threads()
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() { defer wg.Done(); worker() }()
	}
	wg.Wait()

	if firstErr != nil {
		return Summary{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	select {
	case res := <-resultCh:
		return Summary{RootDigestHex: res.DigestHex, FileCount: res.FileCount, ByteCount: res.ByteCount}, nil
	default:
		return Summary{}, fmt.Errorf("collapsio-arc: root directory never resolved")
	}
}
