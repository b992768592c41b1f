// Package cmd provides command-line interface for VCD conversion.
// This file contains the auto, combine and convert commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hansbonini/popsvcd/pkg"
	"github.com/hansbonini/popsvcd/pkg/common"
)

// autoCmd converts a CUE sheet and its BIN files straight into a VCD.
var autoCmd = &cobra.Command{
	Use:   "auto [sheet.cue]",
	Short: "Convert a BIN/CUE image into a VCD file",
	Long: `Convert a BIN/CUE image into a POPStarter VCD file in one step.

This command will:
  - Parse the CUE sheet and check every referenced BIN file
  - Combine the track files in sheet order
  - Detect the game ID in the first 150 KiB of the disc
  - Build the table of contents and write the VCD container

Output:
  <output>/<GameID>.<Title>.VCD, where the output directory defaults to
  psx-vcd-output next to the sheet and the title is the sheet name with
  region and dump tags removed.

` + gapHelp + `

Examples:
  popsvcd auto "Game (USA).cue"
  popsvcd auto "Game (USA).cue" -o ./vcd --gap-plus`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setVerbose(cmd); err != nil {
			return err
		}

		job := pkg.Job{Mode: pkg.ModeAuto, Sheet: args[0]}
		if err := readJob(cmd, &job); err != nil {
			return err
		}

		fmt.Printf("Processing CUE sheet: %s\n", job.Sheet)
		result, err := newProcessor(cmd).Run(job)
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", job.Sheet, err)
		}

		printWarnings(result)
		fmt.Println("VCD file created successfully!")
		printContainer(result)
		return nil
	},
}

// combineCmd merges split track files into one BIN and a matching CUE.
var combineCmd = &cobra.Command{
	Use:   "combine [sheet.cue]",
	Short: "Combine multi-file BIN/CUE images into a single BIN/CUE",
	Long: `Combine the BIN files of a multi-file image into one BIN file and write
a single-file CUE sheet describing it. Pregaps and postgaps declared in the
sheet are stored as zero sectors in the combined data.

Output:
  <output>/<Title>_combined.bin and <output>/<Title>_combined.cue

Examples:
  popsvcd combine "Game (USA).cue"
  popsvcd combine "Game (USA).cue" -o ./combined -f game.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setVerbose(cmd); err != nil {
			return err
		}

		job := pkg.Job{Mode: pkg.ModeCombine, Sheet: args[0]}
		if err := readJob(cmd, &job); err != nil {
			return err
		}

		fmt.Printf("Processing CUE sheet: %s\n", job.Sheet)
		result, err := newProcessor(cmd).Run(job)
		if err != nil {
			return fmt.Errorf("failed to combine %s: %w", job.Sheet, err)
		}

		printWarnings(result)
		fmt.Println("Image combined successfully!")
		fmt.Printf("- Data: %s (%.2f MB)\n", result.Output, common.SizeInMB(result.Bytes))
		fmt.Printf("- Sheet: %s\n", result.Sheet)
		fmt.Printf("- Tracks: %d\n", result.Tracks)
		return nil
	},
}

// convertCmd wraps an already combined BIN into a VCD.
var convertCmd = &cobra.Command{
	Use:   "convert [combined.bin]",
	Short: "Convert a combined BIN file into a VCD file",
	Long: `Convert a BIN file that already holds every track into a VCD file.
The CUE sheet given with -c describes the tracks of the BIN file. A sheet
that lists several files is laid out over those files and the data is then
read from the combined BIN, whose size must match.

Output:
  <output>/<GameID>.<Title>.VCD, where the output directory defaults to the
  directory of the BIN file.

` + gapHelp + `

Examples:
  popsvcd convert Game.bin -c Game.cue
  popsvcd convert Game.bin -c Game.cue -o ./vcd --gap-minus`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setVerbose(cmd); err != nil {
			return err
		}

		sheet, err := cmd.Flags().GetString("cue")
		if err != nil {
			return fmt.Errorf("error getting cue flag: %w", err)
		}
		job := pkg.Job{Mode: pkg.ModeConvert, Sheet: sheet, Input: args[0]}
		if err := readJob(cmd, &job); err != nil {
			return err
		}

		fmt.Printf("Processing BIN file: %s\n", job.Input)
		fmt.Printf("CUE sheet: %s\n", job.Sheet)
		result, err := newProcessor(cmd).Run(job)
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", job.Input, err)
		}

		printWarnings(result)
		fmt.Println("VCD file created successfully!")
		printContainer(result)
		return nil
	},
}

func printContainer(result *pkg.Result) {
	fmt.Printf("- Output: %s (%.2f MB)\n", result.Output, common.SizeInMB(result.Bytes))
	fmt.Printf("- Game ID: %s\n", result.Token())
	fmt.Printf("- Tracks: %d, sectors: %d\n", result.Tracks, result.Sectors)
	if result.Header != nil && result.Header.TOC.Offset != 0 {
		fmt.Printf("- Gap adjustment: %+d sectors\n", result.Header.TOC.Offset)
	}
}

// init initializes the conversion commands with their flags.
func init() {
	rootCmd.AddCommand(autoCmd, combineCmd, convertCmd)

	addOutputFlags(autoCmd, "Output file name (default <GameID>.<Title>.VCD)")
	addGapFlags(autoCmd)
	addPolicyFlag(autoCmd)
	addVerboseFlag(autoCmd)

	addOutputFlags(combineCmd, "Combined BIN file name (default <Title>_combined.bin)")
	addVerboseFlag(combineCmd)

	convertCmd.Flags().StringP("cue", "c", "", "CUE sheet describing the BIN file")
	if err := convertCmd.MarkFlagRequired("cue"); err != nil {
		panic(err)
	}
	addOutputFlags(convertCmd, "Output file name (default <GameID>.<Title>.VCD)")
	addGapFlags(convertCmd)
	addPolicyFlag(convertCmd)
	addVerboseFlag(convertCmd)
}
