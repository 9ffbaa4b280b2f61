package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"campusfeed/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command. An interrupt cancels the command context so
// pending work stops and the state is flushed before exit.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, args, cli.LoadApp, stdin, stdout, stderr)
}
