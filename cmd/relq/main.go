// Command relq seeds record databases and runs relational queries against
// them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/relq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
