package strategy

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jwodder/zarrgallery/internal/ignore"
	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// poolTree is the "fastio" strategy of spec.md §4.9: a fixed pool of
// worker goroutines pulls directories off a shared work deque, lists
// each one, hashes its regular files, and feeds the resulting
// zarrtree.FileEntry values to a single aggregator goroutine that owns
// the zarrtree.Builder -- the tree builder is never touched by more
// than one goroutine.
//
// Termination uses an in-flight-work counter seeded at 1 for the root
// and incremented whenever a subdirectory is discovered; a worker
// decrements it once it has finished listing a directory and sending
// all of that directory's file entries. When the counter reaches zero
// the deque is closed and idle workers return.
type poolTree struct{}

func (poolTree) Run(ctx context.Context, root string, opts Options) (Summary, error) {
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
	queue.push(queueDir{absPath: absRoot, relPath: ""})

	entriesCh := make(chan zarrtree.FileEntry, opts.threads()*4)

	// The worker pool is supervised by an errgroup: the first worker to
	// return an error cancels gctx, which every other worker's select on
	// ctx.Done() observes. The aggregator goroutine runs outside the
	// group since it must keep draining entriesCh until the workers have
	// actually stopped sending to it -- waiting on it inside the group
	// would deadlock against the close(entriesCh) below.
	g, gctx := errgroup.WithContext(ctx)

	builder := zarrtree.NewBuilder()
	var aggErr error
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		for entry := range entriesCh {
			if err := builder.Insert(entry); err != nil {
				aggErr = err
				cancel()
				queue.closeAll()
				return
			}
		}
	}()

	n := opts.threads()
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for {
				item, ok := queue.pop()
				if !ok {
					return nil
				}
				if err := processDir(item, opts, matcher, bufPool, gctx, entriesCh, &pending, queue); err != nil {
					queue.closeAll()
					return err
				}
			}
		})
	}

	workerErr := g.Wait()
	close(entriesCh)
	<-aggDone

	if workerErr != nil {
		return Summary{}, workerErr
	}
	if aggErr != nil {
		return Summary{}, aggErr
	}

	rootDigest, files, bytes, err := builder.Finalize()
	if err != nil {
		return Summary{}, err
	}
	logTreeCompletions(builder)
	return Summary{RootDigestHex: rootDigest, FileCount: files, ByteCount: bytes}, nil
}

// processDir lists one directory, pushes discovered subdirectories back
// onto the deque, hashes regular files, and sends their entries to
// entriesCh. It always decrements pending exactly once, whatever the
// outcome, so the in-flight counter stays balanced.
func processDir(
	item queueDir,
	opts Options,
	matcher ignore.Matcher,
	bufPool *sync.Pool,
	ctx context.Context,
	entriesCh chan<- zarrtree.FileEntry,
	pending *atomic.Int64,
	queue *dirQueue,
) error {
	defer func() {
		if pending.Add(-1) == 0 {
			queue.closeAll()
		}
	}()
	if ctx.Err() != nil {
		return nil
	}

	entries, err := listEntries(item.absPath, item.relPath, opts, matcher)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if e.IsDir {
			pending.Add(1)
			queue.push(queueDir{absPath: e.AbsPath, relPath: e.RelPath})
			continue
		}
		digest, err := hashFile(bufPool, e.AbsPath)
		if err != nil {
			return err
		}
		select {
		case entriesCh <- zarrtree.FileEntry{RelPath: e.RelPath, Digest: digest, Size: e.Size}:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
