package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// collapseMPSC is the "collapsio-mpsc" strategy of spec.md §4.10: the
// channel-owned variant. Worker-pool goroutines only list directories
// and hash files; every fold of a file or subdirectory result into its
// owning directory frame is a message sent to a single owner goroutine,
// which is therefore the only goroutine that ever touches frame state
// and needs no locks at all (many producers, one consumer).
type collapseMPSC struct{}

// mpscEvent is a single fact the owner goroutine folds into its arena:
// either a file's digest or a subdirectory's resolved digest, both
// destined for the frame at idx.
type mpscEvent struct {
	idx       int // directory frame receiving this event
	name      string
	childStr  string
	fileCount int64
	byteCount int64
	listed    bool // true when this event instead reports entries-count for idx itself
	count     int  // entry count, valid when listed is true
}

func (collapseMPSC) Run(ctx context.Context, root string, opts Options) (Summary, error) {
	absRoot, err := statRoot(root)
	if err != nil {
		return Summary{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matcher := matcherFor(opts)
	bufPool := newBufferPool()

	queue := newDirQueue()
	var pending atomic.Int64
	pending.Store(1)

	// The arena holds *collapseFrame, not collapseFrame, so that append
	// only ever copies pointers: the frame each pointer refers to is a
	// stable heap object the owner exclusively mutates once its index
	// has been handed over (via queue.push then a later queue.pop, or
	// via the events channel). That alone isn't enough, though -- frames
	// is still a plain Go slice, and reading its header (pointer/len/cap)
	// without a lock while allocFrame's append grows and reassigns it
	// under arenaMu is a data race on the header itself. frameAt is the
	// only way the owner goroutine touches the frames variable, so every
	// lookup is synchronized against every append.
	var arenaMu sync.Mutex
	frames := []*collapseFrame{{relPath: "", name: "", parentIdx: -1}}
	const rootIdx = 0
	allocFrame := func(relPath, name string, parentIdx int) int {
		arenaMu.Lock()
		defer arenaMu.Unlock()
		frames = append(frames, &collapseFrame{relPath: relPath, name: name, parentIdx: parentIdx})
		return len(frames) - 1
	}
	frameAt := func(idx int) *collapseFrame {
		arenaMu.Lock()
		defer arenaMu.Unlock()
		return frames[idx]
	}
	queue.push(queueDir{idx: rootIdx, absPath: absRoot, relPath: ""})

	events := make(chan mpscEvent, opts.threads()*4)
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

	ownerDone := make(chan struct{})
	go func() {
		defer close(ownerDone)

		var resolve func(idx int)
		resolve = func(idx int) {
			f := frameAt(idx)
			res := combineFrame(f.children, f.fileCount, f.byteCount)
			logCompletion(f.relPath, res.DigestHex)
			if idx == rootIdx {
				resultCh <- res
				return
			}
			parent := frameAt(f.parentIdx)
			// A directory with no files beneath it contributes nothing.
			if res.FileCount > 0 {
				parent.children = append(parent.children, collapseChildRef{
					name: f.name,
					str:  zarrtree.ChildString(f.relPath, res.DigestHex, res.FileCount, res.ByteCount),
				})
				parent.fileCount += res.FileCount
				parent.byteCount += res.ByteCount
			}
			parent.remaining--
			if parent.listed && parent.remaining == 0 {
				resolve(f.parentIdx)
			}
		}

		for ev := range events {
			f := frameAt(ev.idx)
			if ev.listed {
				f.remaining = ev.count
				f.listed = true
				if f.remaining == 0 {
					resolve(ev.idx)
				}
				continue
			}
			f.children = append(f.children, collapseChildRef{name: ev.name, str: ev.childStr})
			f.fileCount += ev.fileCount
			f.byteCount += ev.byteCount
			f.remaining--
			if f.listed && f.remaining == 0 {
				resolve(ev.idx)
			}
		}
	}()

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
				select {
				case events <- mpscEvent{idx: item.idx, listed: true, count: len(entries)}:
				case <-ctx.Done():
					return
				}
				for _, e := range entries {
					if ctx.Err() != nil {
						return
					}
					if e.IsDir {
						childIdx := allocFrame(e.RelPath, e.Name, item.idx)
						pending.Add(1)
						queue.push(queueDir{idx: childIdx, absPath: e.AbsPath, relPath: e.RelPath})
						continue
					}
					digest, err := hashFile(bufPool, e.AbsPath)
					if err != nil {
						reportErr(err)
						return
					}
					logCompletion(e.RelPath, digest.Hex())
					ev := mpscEvent{
						idx:       item.idx,
						name:      e.Name,
						childStr:  zarrtree.ChildString(e.RelPath, digest.Hex(), 1, e.Size),
						fileCount: 1,
						byteCount: e.Size,
					}
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
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
	close(events)
	<-ownerDone

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
		return Summary{}, fmt.Errorf("collapsio-mpsc: root directory never resolved")
	}
}
