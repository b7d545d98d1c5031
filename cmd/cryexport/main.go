package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryexport/cryexport/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "📦 cryexport: %v\n", err)
		os.Exit(1)
	}
}

// run executes the CLI; Ctrl+C cancels a running export or watch.
func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := cli.NewConfig()
	cfg.Version = version
	return cli.NewCLI(cfg).ExecuteContext(ctx, args)
}
