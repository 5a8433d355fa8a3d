// Command actionkit validates, inspects and exercises action definitions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/actionkit/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
