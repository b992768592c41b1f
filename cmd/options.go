package cmd

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/hansbonini/popsvcd/pkg"
	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/gameid"
	"github.com/hansbonini/popsvcd/pkg/vcd"
)

func addVerboseFlag(c *cobra.Command) {
	c.Flags().BoolP("verbose", "v", false, "Enable verbose output with track layout and TOC details")
}

func addOutputFlags(c *cobra.Command, nameHelp string) {
	c.Flags().StringP("output", "o", "", "Output directory")
	c.Flags().StringP("filename", "f", "", nameHelp)
	c.Flags().Bool("no-progress", false, "Disable the copy progress bar")
}

// gapHelp explains the default TOC times and the gap flags
const gapHelp = `Track times:
  By default track 1 starts at 00:00:00 and the lead-out sits at the payload
  size. Use --gap-plus to get the POPStarter and cue2pops standard times,
  with track 1 at 00:02:00 and the lead-out at the payload size plus 150
  sectors.`

func addGapFlags(c *cobra.Command) {
	c.Flags().Bool("gap-plus", false, "Shift every track and the lead-out by +2 seconds (150 sectors), giving POPStarter standard times")
	c.Flags().Bool("gap-minus", false, "Shift every track and the lead-out by -2 seconds (150 sectors)")
	c.MarkFlagsMutuallyExclusive("gap-plus", "gap-minus")
}

func addPolicyFlag(c *cobra.Command) {
	c.Flags().String("policy", "first", "Game ID choice when an image holds several serials (first, frequent)")
}

// setVerbose enables verbose mode if requested
func setVerbose(c *cobra.Command) error {
	verbose, err := c.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("error getting verbose flag: %w", err)
	}
	common.SetVerboseMode(verbose)
	return nil
}

// readJob fills the job fields shared by the converting commands
func readJob(c *cobra.Command, job *pkg.Job) error {
	var err error
	if job.OutputDir, err = c.Flags().GetString("output"); err != nil {
		return fmt.Errorf("error getting output flag: %w", err)
	}
	if job.FileName, err = c.Flags().GetString("filename"); err != nil {
		return fmt.Errorf("error getting filename flag: %w", err)
	}

	if c.Flags().Lookup("gap-plus") != nil {
		plus, _ := c.Flags().GetBool("gap-plus")
		minus, _ := c.Flags().GetBool("gap-minus")
		if job.Gap, err = vcd.ParseGap(plus, minus); err != nil {
			return err
		}
	}
	if c.Flags().Lookup("policy") != nil {
		if job.Policy, err = readPolicy(c); err != nil {
			return err
		}
	}
	return nil
}

func readPolicy(c *cobra.Command) (gameid.Policy, error) {
	name, err := c.Flags().GetString("policy")
	if err != nil {
		return gameid.FirstOccurrence, fmt.Errorf("error getting policy flag: %w", err)
	}
	return gameid.ParsePolicy(name)
}

// newProcessor creates a processor reporting copies on stderr unless
// --no-progress is given
func newProcessor(c *cobra.Command) *pkg.VCDProcessor {
	processor := pkg.NewVCDProcessor()
	if quiet, err := c.Flags().GetBool("no-progress"); err == nil && !quiet {
		processor.Progress = progressBar
	}
	return processor
}

func progressBar(label string, total int64) (func(int64), func()) {
	bar := pb.New64(total)
	bar.SetWriter(os.Stderr)
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", label+" ")
	bar.Start()
	return func(n int64) { bar.Add64(n) }, func() { bar.Finish() }
}

func printWarnings(result *pkg.Result) {
	for _, warning := range result.Warnings {
		fmt.Printf("Warning: %v\n", warning)
	}
}
