package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/jobbook/internal/cmd"
	"github.com/felixgeelhaar/jobbook/internal/exitcode"
	"github.com/felixgeelhaar/jobbook/internal/ux"
)

func main() {
	// Scripts run in their own process groups. Canceling ctx forwards the
	// interrupt to them and settles the rest of the tree as canceled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx, os.Args[1:])
	if err == nil {
		exitcode.Exit(exitcode.Success)
	}

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\nRun interrupted")
		exitcode.Exit(exitcode.Interrupted)
	}
	if !cmd.IsReported(err) {
		ux.PrintError(os.Stderr, err, ux.NewStyles(os.Stderr, false))
	}
	exitcode.ExitWithError(err)
}
