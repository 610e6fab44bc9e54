// Command nested manages hierarchical key-value views stored as
// append-only operation logs in SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nested/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
