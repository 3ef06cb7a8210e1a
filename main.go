// ncdial - a cancellable, timeout-bounded TCP connector with SSH tunneling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ncdial/cmd"
	ncerr "ncdial/internal/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ncdial: %v\n", err)
		cancel()
		os.Exit(ncerr.ExitCode(err))
	}
}
