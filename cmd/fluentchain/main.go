// Command fluentchain runs, records and replays fluent proxy chain
// scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/fluentchain/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
