// Command datacollector collects sensor readings into an NDN repo.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/datacollector/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "datacollector:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
