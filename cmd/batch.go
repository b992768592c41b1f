package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hansbonini/popsvcd/pkg"
)

// batchCmd runs the jobs of a YAML manifest in parallel.
var batchCmd = &cobra.Command{
	Use:   "batch [manifest.yaml]",
	Short: "Run conversion jobs listed in a YAML manifest",
	Long: `Run independent conversion jobs listed in a YAML manifest on a pool of
workers. Relative paths are resolved against the manifest's directory. A
failing job does not stop the others; the command fails if any job failed.

Manifest format:
  output: ./vcd
  jobs:
    - mode: auto
      sheet: games/Foo (USA).cue
      gap: plus
    - mode: convert
      sheet: games/Bar.cue
      input: games/Bar.bin
      name: BAR.VCD
    - mode: detect
      input: games/Baz.bin

Example:
  popsvcd batch games.yaml -j 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setVerbose(cmd); err != nil {
			return err
		}
		workers, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return fmt.Errorf("error getting jobs flag: %w", err)
		}

		manifest, err := pkg.LoadManifest(args[0])
		if err != nil {
			return err
		}
		jobs, err := manifest.Build()
		if err != nil {
			return fmt.Errorf("invalid manifest %s: %w", args[0], err)
		}

		fmt.Printf("Processing manifest: %s (%d jobs)\n", args[0], len(jobs))
		results := pkg.NewVCDProcessor().RunBatch(jobs, workers)

		failed := 0
		for i, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("[%d] %s FAILED: %v\n", i+1, r.Job.Mode, r.Err)
				continue
			}
			output := r.Result.Output
			if output == "" {
				output = "-"
			}
			fmt.Printf("[%d] %s %s -> %s\n", i+1, r.Job.Mode, r.Result.Token(), output)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
		}
		fmt.Println("All jobs completed successfully!")
		return nil
	},
}

// init initializes the batch command with its flags.
func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("jobs", "j", 0, "Number of parallel jobs (default: number of CPUs)")
	addVerboseFlag(batchCmd)
}
