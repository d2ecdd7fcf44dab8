// Package checksum provides the "checksum" command, the single
// documented entry point of spec.md §6:
// zarrgallery checksum <strategy> [opts] <dirpath>.
package checksum

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jwodder/zarrgallery/cmd"
	"github.com/jwodder/zarrgallery/internal/logger"
	"github.com/jwodder/zarrgallery/internal/strategy"
	"github.com/jwodder/zarrgallery/internal/walkerr"
	"github.com/jwodder/zarrgallery/internal/zarrtree"
)

var registry = strategy.NewRegistry()

var (
	threads int
	workers int
)

// checksumCmd implements `zarrgallery checksum <strategy> <dirpath>`.
var checksumCmd = &cobra.Command{
	Use:       "checksum <strategy> <dirpath>",
	Short:     "Compute a deterministic Merkle-style checksum of a directory tree",
	Args:      cobra.ExactArgs(2),
	ValidArgs: strategyNames(),
	RunE: func(c *cobra.Command, args []string) error {
		strategyName, root := args[0], args[1]
		s, ok := registry[strategyName]
		if !ok {
			return fmt.Errorf("unknown strategy %q: want one of %s", strategyName, strings.Join(strategyNames(), ", "))
		}

		opts := strategy.Options{
			Threads:         threads,
			Workers:         workers,
			ExcludeDotfiles: cmd.ExcludeDotfiles,
		}

		log := logger.With("strategy", strategyName, "root", root)
		log.Debug("starting checksum run")
		start := time.Now()

		summary, err := s.Run(c.Context(), root, opts)
		if err != nil {
			log.Error("checksum run failed", "error", err, "duration", time.Since(start))
			return err
		}
		log.Debug("checksum run completed",
			"duration", time.Since(start),
			"files", summary.FileCount,
			"bytes", summary.ByteCount,
		)

		out := c.OutOrStdout()
		if strategyName == "tree" {
			for _, line := range summary.Tree {
				if _, err := fmt.Fprintf(out, "%s\t%s\t(%s)\n", line.RelPath, line.DigestHex, humanize.Bytes(uint64(line.ByteCount))); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
		}

		line := zarrtree.RootLine(summary.RootDigestHex, summary.FileCount, summary.ByteCount)
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	},
}

func strategyNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExitCode maps a checksum run's error to a process exit code, per
// spec.md §6 ("0 on success; non-zero on fatal error"). Every walkerr
// kind is treated alike (1); unrecognized errors get 2 so an operator
// can tell "expected fatal condition" apart from "something this repo
// didn't anticipate".
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var werr *walkerr.Error
	if errors.As(err, &werr) {
		return 1
	}
	return 2
}

func init() {
	checksumCmd.Flags().IntVarP(&threads, "threads", "t", 0, "Worker-pool thread count for pool-* and fastasync strategies (default: logical CPU count)")
	checksumCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Logical worker count for the fastasync strategy (default: logical CPU count)")

	cmd.Register(checksumCmd)
}
