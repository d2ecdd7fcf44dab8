// Package strategy implements the five (eight CLI-visible) traversal
// strategies of spec.md §4.6-4.11 behind one Strategy interface, so the
// CLI dispatcher (cmd/checksum) can select among them without caring how
// each combines hashes. Every strategy must produce a bit-identical
// Summary.RootDigestHex/FileCount/ByteCount for the same input tree.
package strategy

import (
	"context"
	"runtime"
)

// DefaultBufferSize is the default buffer size used to stream file bytes
// through the digest, carried over from the teacher engine's
// DefaultBufferSize.
const DefaultBufferSize = 256 * 1024

// Options configures a single strategy run. Threads and Workers default
// to the number of logical CPUs when zero or negative, matching spec.md
// §6's "Default for all N: number of logical CPU cores."
type Options struct {
	// Threads bounds OS-thread/goroutine-pool concurrency for the
	// pool-* and fastasync strategies ("-t/--threads").
	Threads int
	// Workers is the number of directory-walking goroutines fastasync
	// runs ("-w/--workers"); its file hashing runs on a separate pool
	// sized by Threads. Ignored by every other strategy.
	Workers int
	// ExcludeDotfiles enables the fixed dotfile-exclusion set from
	// spec.md §4.1 ("-E/--exclude-dotfiles").
	ExcludeDotfiles bool
	// ExcludePatterns are additional gitignore-style exclusion patterns
	// (a supplement beyond spec.md, carried over from the teacher's
	// --exclude flag and .zarrignore/.gitignore loading).
	ExcludePatterns []string
}

func (o Options) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.NumCPU()
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// TreeLine is one row of the "tree" strategy's textual listing: a
// relative path and the digest/aggregate string computed for it.
type TreeLine struct {
	RelPath   string
	DigestHex string
	FileCount int64
	ByteCount int64
}

// Summary is a strategy run's result: the root checksum line's
// components, plus (for the "tree" strategy only) the per-entry listing.
type Summary struct {
	RootDigestHex string
	FileCount     int64
	ByteCount     int64
	Tree          []TreeLine
}

// Strategy is implemented by every traversal/aggregation engine.
type Strategy interface {
	// Run walks root and returns the combined checksum. ctx cancellation
	// aborts in-flight concurrent strategies as soon as workers next
	// check in; spec.md exposes no user-level cancellation API, so ctx
	// is used only internally to propagate the first fatal error.
	Run(ctx context.Context, root string, opts Options) (Summary, error)
}

// Registry maps the CLI strategy tokens of spec.md §6 to Strategy
// implementations.
type Registry map[string]Strategy

// NewRegistry returns the registry of all eight CLI-visible strategy
// tokens.
func NewRegistry() Registry {
	return Registry{
		"breadth-first":  iterBreadth{},
		"depth-first":    iterDepth{},
		"recursive":      recursiveDepth{},
		"fastio":         poolTree{},
		"fastasync":      fastAsync{},
		"collapsio-arc":  collapseARC{},
		"collapsio-mpsc": collapseMPSC{},
		"tree":           treeStrategy{},
	}
}
