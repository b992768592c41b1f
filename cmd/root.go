// Package cmd provides command-line interface functionality for popsvcd.
// popsvcd converts PlayStation BIN/CUE disc images into the VCD container
// booted by POPStarter.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
// It provides the main entry point for the popsvcd application.
var rootCmd = &cobra.Command{
	Use:   "popsvcd",
	Short: "Convert PlayStation BIN/CUE images to POPStarter VCD files",
	Long: `popsvcd - Convert PlayStation disc images described by a CUE sheet
into the VCD container used by POPStarter on the PlayStation 2.

Currently supports:
  - Multi-file and single-file BIN/CUE images (data and audio tracks)
  - Combining split track files into one BIN with a rewritten CUE
  - Game ID detection from raw data, CUE sheets and VCD files
  - Batch conversion from a YAML manifest

Examples:
  popsvcd auto "Game (USA).cue"
  popsvcd auto "Game (USA).cue" -o ./vcd --gap-plus
  popsvcd combine "Game (USA).cue" -o ./combined
  popsvcd convert Game.bin -c Game.cue
  popsvcd detect "Game (USA).cue" -v
  popsvcd batch games.yaml -j 4

Use 'popsvcd [command] --help' for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() and serves as the entry point for command execution.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
