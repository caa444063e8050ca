// Command nwstore bootstraps, inspects and queries Northwind data files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/northwind/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
