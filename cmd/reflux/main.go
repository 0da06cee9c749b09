package main

import (
	"fmt"
	"os"

	"github.com/roach88/reflux/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
