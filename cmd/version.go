package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo records the build metadata injected into main
func SetVersionInfo(v, built, commit string) {
	version, buildTime, gitCommit = v, built, commit
}

// PrintVersion writes the version banner
func PrintVersion(w io.Writer) {
	if parsed, err := semver.ParseTolerant(version); err == nil {
		fmt.Fprintf(w, "popsvcd %s\n", parsed)
	} else {
		fmt.Fprintf(w, "popsvcd %s (development build)\n", version)
	}
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		PrintVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
