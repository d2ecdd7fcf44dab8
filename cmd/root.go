// Package cmd provides the root command and command registration functionality
// for the zarrgallery CLI application. It handles global flags, logging
// configuration, and command initialization.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jwodder/zarrgallery/internal/logger"
	"github.com/jwodder/zarrgallery/version"
	"github.com/spf13/cobra"
)

var (
	// logLevel stores the logging level flag value.
	logLevel string

	// logFormat stores the logging format flag value (text or json).
	logFormat string

	// logOutput stores the log output destination flag value (stdout or filename).
	logOutput string

	// verbose stores the count of -v flags (0, 1, or 2).
	verbose int

	// quiet stores the quiet mode flag value.
	quiet bool

	// debug and trace are spec.md §6's named verbosity flags: --debug
	// selects the debug level (the same as -vv), --trace the trace level
	// below it (the same as --log-level=trace).
	debug bool
	trace bool

	// ExcludeDotfiles is spec.md §6's global -E/--exclude-dotfiles flag,
	// read by cmd/checksum when building strategy.Options.
	ExcludeDotfiles bool

	// logFile stores the opened log file handle when logging to a file.
	logFile *os.File
)

// rootCmd is the root command for the zarrgallery CLI application.
// It provides the main entry point and handles global configuration.
var rootCmd = &cobra.Command{
	Use:   "zarrgallery",
	Short: "zarrgallery computes deterministic Merkle-style checksums over DANDI Zarr asset trees",
	Long: `zarrgallery is a deterministic directory checksum tool for DANDI Zarr asset
trees. It provides a gallery of interchangeable traversal strategies that
are all required to agree on the same root checksum.`,
	Example: `  # Checksum a directory with the default breadth-first strategy
  zarrgallery checksum breadth-first /data/my-zarr-asset

  # Use the worker-pool strategy with 8 threads
  zarrgallery checksum fastio -t 8 /data/my-zarr-asset

  # Exclude DANDI/git bookkeeping dotfiles
  zarrgallery checksum recursive -E /data/my-zarr-asset`,
	Version: version.VERSION,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Determine log level based on flags
		level := logLevel
		switch {
		case quiet:
			level = "error"
		case trace:
			level = "trace"
		case debug:
			level = "debug"
		case verbose >= 2:
			level = "debug"
		case verbose == 1:
			level = "info"
		case level == "":
			// Default to warn level when no verbose flag is set
			level = "warn"
		}

		// Determine log output destination. spec.md §6 reserves stdout
		// for exactly one line (the checksum result, plus the tree
		// strategy's per-entry listing); logging defaults to stderr so
		// --debug/--trace output never interleaves with that line.
		var output io.Writer
		switch logOutput {
		case "", "stderr":
			output = os.Stderr
		case "stdout":
			output = os.Stdout
		default:
			// Clean and validate log file path to prevent directory traversal
			cleanPath := filepath.Clean(logOutput)
			absPath, err := filepath.Abs(cleanPath)
			if err != nil {
				return fmt.Errorf("error resolving log file path %s: %w", logOutput, err)
			}

			// Validate the cleaned path matches the resolved absolute path
			if filepath.Clean(absPath) != absPath {
				return fmt.Errorf("invalid log file path: %s", logOutput)
			}

			// Open file for writing (create if not exists, append if exists)
			// Use 0600 permissions (owner read/write only) for security
			logFile, err = os.OpenFile(absPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err != nil {
				return fmt.Errorf("error opening log file %s: %w", logOutput, err)
			}
			output = logFile
		}

		// Initialize logger
		logger.Init(level, logFormat, output)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Close log file if it was opened
		if logFile != nil {
			if err := logFile.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", err)
			}
			logFile = nil
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Register adds a subcommand to the root command.
// This function is called by subcommand packages during their init() functions
// to register themselves with the root command.
//
// Parameters:
//   - cmd: The Cobra command to register as a subcommand
func Register(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// GetRootCmd returns the root command instance.
// This is primarily useful for testing, allowing test code to access
// the root command structure.
//
// Returns the root Cobra command instance.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// Execute executes the root command and handles errors.
// It is the main entry point for the CLI application and should be called
// from the main package. On failure, it exits with code 1.
// Cobra already prints error messages, so this function only handles exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Configure Cobra to handle errors gracefully
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	// Set custom version template to display version, commit, and date information.
	rootCmd.SetVersionTemplate(fmt.Sprintf("zarrgallery %s (%s) %s\n", version.VERSION, version.COMMIT, version.DATE))

	// Set custom help template to show Examples after Flags
	rootCmd.SetHelpTemplate(`{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}
{{end}}{{if or .Runnable .HasSubCommands}}{{if .Runnable}}
Usage:
{{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)

	// Add persistent flags for logging
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set the logging level (trace, debug, info, warn, error). Default: warn")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Set the logging format (text, json). Default: text")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "stderr", "Set the log output destination (stderr, stdout, or a filename). Default: stderr")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "Enable verbose output: -v for info level, -vv for debug level")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output (equivalent to --log-level=error)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "One line per file/directory completion (equivalent to -vv)")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Additionally log worker-internal events (equivalent to --log-level=trace)")
	rootCmd.PersistentFlags().BoolVarP(&ExcludeDotfiles, "exclude-dotfiles", "E", false, "Exclude the fixed DANDI/git bookkeeping dotfile set (.dandi, .datalad, .git, .gitattributes, .gitmodules)")
}
