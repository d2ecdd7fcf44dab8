// Package main is the entry point for the zarrgallery CLI application.
// It initializes all subcommands and executes the root command.
package main

import (
	"github.com/jwodder/zarrgallery/cmd"
	_ "github.com/jwodder/zarrgallery/cmd/checksum"
)

// main is the entry point of the application.
// It executes the root command which handles all CLI interactions.
func main() {
	cmd.Execute()
}
