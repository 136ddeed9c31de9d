// Command nucleusgen generates the host boundary for annotated Go packages
// and inspects built modules. Typical use is a go:generate line in the
// package being exposed:
//
//	//go:generate go run github.com/wippyai/wasm-nucleus/cmd/nucleusgen generate
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/wippyai/wasm-nucleus/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nucleusgen: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
