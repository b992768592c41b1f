package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hansbonini/popsvcd/pkg"
	"github.com/hansbonini/popsvcd/pkg/common"
)

// detectCmd reports the game ID of an image without writing anything.
var detectCmd = &cobra.Command{
	Use:   "detect [sheet.cue|data.bin|image.vcd]",
	Short: "Detect the game ID of a disc image",
	Long: `Detect the game ID of a disc image.

The input may be a CUE sheet (its tracks are combined in memory), a raw BIN
file or a VCD file (the scan starts after the 1 MiB header). The game ID is
printed on its own line, or UNKNOWN when no serial is found.

  -v  also print the region, title and ISO9660 volume
  -d  list every serial occurrence with its offset
  --yaml  print a YAML report instead

Examples:
  popsvcd detect "Game (USA).cue"
  popsvcd detect -v Game.bin
  popsvcd detect -d --yaml SLUS_012.34.Game.VCD`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return fmt.Errorf("error getting verbose flag: %w", err)
		}
		debug, err := cmd.Flags().GetBool("debug")
		if err != nil {
			return fmt.Errorf("error getting debug flag: %w", err)
		}
		asYAML, err := cmd.Flags().GetBool("yaml")
		if err != nil {
			return fmt.Errorf("error getting yaml flag: %w", err)
		}
		common.SetVerboseMode(verbose && !asYAML)

		policy, err := readPolicy(cmd)
		if err != nil {
			return err
		}

		job := pkg.Job{Mode: pkg.ModeDetect, Input: args[0], Policy: policy, Debug: debug}
		result, err := pkg.NewVCDProcessor().Run(job)
		if err != nil {
			return fmt.Errorf("failed to detect game ID: %w", err)
		}

		if asYAML {
			data, err := result.YAML()
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Print(string(data))
			return nil
		}

		fmt.Println(result.Token())
		if verbose {
			fmt.Printf("Region: %s\n", result.Region())
			fmt.Printf("Title: %s\n", result.Title)
			if result.Volume != nil {
				fmt.Printf("Volume: %s (%s, %d sectors)\n", result.Volume.VolumeID, result.Volume.SystemID, result.Volume.Sectors)
				if result.Volume.BootFile != "" {
					fmt.Printf("Boot file: %s\n", result.Volume.BootFile)
				}
			}
		}
		if debug {
			fmt.Printf("Candidates: %d\n", len(result.Candidates))
			for _, candidate := range result.Candidates {
				fmt.Printf("  0x%08X  %-12s  %q\n", candidate.Offset, candidate.ID, candidate.Raw)
			}
		}
		return nil
	},
}

// init initializes the detect command with its flags.
func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().BoolP("verbose", "v", false, "Print region, title and volume information")
	detectCmd.Flags().BoolP("debug", "d", false, "List every game ID candidate")
	detectCmd.Flags().Bool("yaml", false, "Print the result as a YAML report")
	addPolicyFlag(detectCmd)
}
