package strategy

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jwodder/zarrgallery/internal/ignore"
	"github.com/jwodder/zarrgallery/internal/logger"
	"github.com/jwodder/zarrgallery/internal/walkerr"
	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

// logCompletion emits spec.md §6's DEBUG record: one line per file or
// directory completion, "<relpath>\t<digest_hex>". The root directory's
// relpath is "", same as its ChildString encoding.
func logCompletion(relPath, digestHex string) {
	logger.Debug(relPath + "\t" + digestHex)
}

// logTreeCompletions emits logCompletion for every file and directory in
// a finalized Builder's tree. Used by the Builder-backed strategies
// breadth-first, fastio and fastasync, which only have relpaths and
// digests for every node available together, after Finalize, rather than
// as each one resolves mid-walk. The tree strategy logs the same records
// from inside its own Walk instead.
func logTreeCompletions(builder *zarrtree.Builder) {
	root, err := builder.Root()
	if err != nil {
		return
	}
	root.Walk(func(n zarrtree.Node) {
		relPath, digestHex, _, _ := n.Summary()
		logCompletion(relPath, digestHex)
	})
}

// newBufferPool returns a sync.Pool of DefaultBufferSize byte buffers,
// the teacher engine's pattern for reusable read buffers across
// concurrent file hashing.
func newBufferPool() *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, DefaultBufferSize)
			return &buf
		},
	}
}

// hashFile streams absPath's bytes through a fresh Digester using a
// buffer drawn from pool. Any I/O error is reported as a
// walkerr.ReadFailure, per spec.md §4.3 and §7.
func hashFile(pool *sync.Pool, absPath string) (zarrtree.FileDigest, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return zarrtree.FileDigest{}, walkerr.New(walkerr.ReadFailure, absPath, err)
	}
	defer f.Close()

	bufPtr, _ := pool.Get().(*[]byte)
	defer pool.Put(bufPtr)
	buf := *bufPtr

	d := zarrtree.NewDigester()
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := d.Write(buf[:n]); werr != nil {
				return zarrtree.FileDigest{}, walkerr.New(walkerr.ReadFailure, absPath, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return zarrtree.FileDigest{}, walkerr.New(walkerr.ReadFailure, absPath, rerr)
		}
	}
	return d.Sum(), nil
}

// dirEntry is a classified, filtered child of a directory being walked:
// either a subdirectory to recurse into or a regular file ready to hash.
type dirEntry struct {
	Name    string
	RelPath string
	AbsPath string
	IsDir   bool
	Size    int64
}

// matcherFor compiles opts.ExcludePatterns into a Matcher, or nil if
// there are none (a supplemental --exclude mechanism beyond spec.md,
// adapted from the teacher's ignore package).
func matcherFor(opts Options) ignore.Matcher {
	if len(opts.ExcludePatterns) == 0 {
		return nil
	}
	return ignore.NewPatternMatcher(opts.ExcludePatterns)
}

// listEntries lists dirAbs, sorts entries lexicographically by name (the
// order the combine function requires), validates each child's path
// component, applies the dotfile/pattern exclusion filters, and skips
// symlinks and special files (spec.md's design note: this implementation
// refuses to follow symlinks entirely rather than tracking visited
// device/inode pairs -- see DESIGN.md).
func listEntries(dirAbs, dirRel string, opts Options, matcher ignore.Matcher) ([]dirEntry, error) {
	logger.Trace("listing directory", "relpath", dirRel)
	raw, err := os.ReadDir(dirAbs)
	if err != nil {
		return nil, walkerr.New(walkerr.ListFailure, dirAbs, err)
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].Name() < raw[j].Name() })

	entries := make([]dirEntry, 0, len(raw))
	for _, e := range raw {
		name := e.Name()
		relPath, err := zarrtree.JoinRelPath(dirRel, name)
		if err != nil {
			return nil, err
		}
		if opts.ExcludeDotfiles && zarrtree.IsExcludedDotfile(relPath) {
			continue
		}
		if matcher != nil && matcher.Match(relPath, e.IsDir()) {
			continue
		}

		typ := e.Type()
		if typ&os.ModeSymlink != 0 {
			continue
		}
		if typ&(os.ModeNamedPipe|os.ModeSocket|os.ModeDevice|os.ModeCharDevice|os.ModeIrregular) != 0 {
			continue
		}

		absPath := filepath.Join(dirAbs, name)
		if e.IsDir() {
			entries = append(entries, dirEntry{Name: name, RelPath: relPath, AbsPath: absPath, IsDir: true})
			continue
		}

		info, err := e.Info()
		if err != nil {
			return nil, walkerr.New(walkerr.StatFailure, absPath, err)
		}
		entries = append(entries, dirEntry{Name: name, RelPath: relPath, AbsPath: absPath, Size: info.Size()})
	}
	return entries, nil
}

// statRoot validates that root exists, is readable, and is a directory,
// returning its absolute path. Per spec.md §6, any failure here is fatal
// (walkerr.InvalidRoot).
func statRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", walkerr.New(walkerr.InvalidRoot, root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return "", walkerr.New(walkerr.InvalidRoot, root, err)
	}
	if !info.IsDir() {
		return "", walkerr.New(walkerr.InvalidRoot, root, os.ErrInvalid)
	}
	return absRoot, nil
}
