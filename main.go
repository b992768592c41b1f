/*
popsvcd - Convert PlayStation BIN/CUE disc images into POPStarter VCD files.

Copyright © 2025 Hans Bonini
*/
package main

import (
	"os"

	"github.com/hansbonini/popsvcd/cmd"
)

// Version information (injected at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime, GitCommit)

	// Check for version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		cmd.PrintVersion(os.Stdout)
		os.Exit(0)
	}

	cmd.Execute()
}
