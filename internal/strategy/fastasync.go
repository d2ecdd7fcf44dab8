package strategy

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jwodder/zarrgallery/internal/walkerr"
	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// fastAsync is the "fastasync" strategy of spec.md §4.11: the closest
// idiomatic-Go analog to a cooperative-task runtime. Directory traversal
// runs on a fixed set of -w goroutines pulling from the shared work
// deque (identical shape to poolTree); file hashing is instead
// dispatched onto an ants.Pool sized by -t, so the number of concurrent
// open file descriptors is bounded independently of the number of
// directories being walked at once.
type fastAsync struct{}

func (fastAsync) Run(ctx context.Context, root string, opts Options) (Summary, error) {
	absRoot, err := statRoot(root)
	if err != nil {
		return Summary{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matcher := matcherFor(opts)
	bufPool := newBufferPool()

	hashPool, err := ants.NewPool(opts.threads())
	if err != nil {
		return Summary{}, walkerr.New(walkerr.InternalChannel, root, err)
	}
	defer hashPool.Release()

	queue := newDirQueue()
	var pending atomic.Int64
	pending.Store(1)
	queue.push(queueDir{absPath: absRoot, relPath: ""})

	entriesCh := make(chan zarrtree.FileEntry, opts.workers()*4)

	// As in poolTree, the traversal workers are supervised by an
	// errgroup and the aggregator runs outside it so it can keep
	// draining entriesCh past the point the workers stop.
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

	var hashWG sync.WaitGroup
	var hashErrOnce sync.Once
	var hashErr error
	reportHashErr := func(err error) {
		hashErrOnce.Do(func() {
			hashErr = err
			cancel()
			queue.closeAll()
		})
	}

	traverse := func() error {
		for {
			item, ok := queue.pop()
			if !ok {
				return nil
			}
			if err := func() error {
				defer func() {
					if pending.Add(-1) == 0 {
						queue.closeAll()
					}
				}()
				if gctx.Err() != nil {
					return nil
				}
				entries, err := listEntries(item.absPath, item.relPath, opts, matcher)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if gctx.Err() != nil {
						return nil
					}
					if e.IsDir {
						pending.Add(1)
						queue.push(queueDir{absPath: e.AbsPath, relPath: e.RelPath})
						continue
					}
					entry := e
					hashWG.Add(1)
					submitErr := hashPool.Submit(func() {
						defer hashWG.Done()
						digest, err := hashFile(bufPool, entry.AbsPath)
						if err != nil {
							reportHashErr(err)
							return
						}
						select {
						case entriesCh <- zarrtree.FileEntry{RelPath: entry.RelPath, Digest: digest, Size: entry.Size}:
						case <-gctx.Done():
						}
					})
					if submitErr != nil {
						hashWG.Done()
						return walkerr.New(walkerr.InternalChannel, entry.AbsPath, submitErr)
					}
				}
				return nil
			}(); err != nil {
				queue.closeAll()
				return err
			}
		}
	}

	n := opts.workers()
	for i := 0; i < n; i++ {
		g.Go(traverse)
	}

	workerErr := g.Wait()
	hashWG.Wait()
	close(entriesCh)
	<-aggDone

	if workerErr != nil {
		return Summary{}, workerErr
	}
	if hashErr != nil {
		return Summary{}, hashErr
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
