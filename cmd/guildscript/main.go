// Command guildscript manages and runs tenant-defined Lua commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/guildscript/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Reported {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
