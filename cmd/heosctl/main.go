// Command heosctl controls HEOS devices from the command line.
//
//	heosctl players
//	heosctl volume 1 30
//	heosctl events
//	heosctl emulate --listen :1255
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "heosctl:", err)
		os.Exit(1)
	}
}
