package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/interviewcast/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
