package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/webpq/internal/server"
	"github.com/urfave/cli/v3"
)

// MockServe runs the in-memory job queue backend until interrupted.
func (r *Runner) MockServe(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := server.MockOpts{
		Advance:    config.Mock.Advance,
		FailPrefix: config.Mock.FailPrefix,
		Logger:     r.logger.With("component", "mock"),
	}
	if v := cmd.Float("advance"); v > 0 {
		opts.Advance = v
	}
	if v := cmd.String("fail-prefix"); v != "" {
		opts.FailPrefix = v
	}

	addr := config.Mock.Addr
	if v := cmd.String("addr"); v != "" {
		addr = v
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := server.NewMockQueue(opts)
	router := server.NewMockRouter(queue, opts.Logger)
	ready := make(chan string, 1)
	defer close(ready)
	go func() {
		if bound, ok := <-ready; ok {
			r.writePlain("Mock job queue listening on http://%s\n", bound)
			for _, route := range router.Routes() {
				r.writePlain("  %s\n", route)
			}
		}
	}()

	return server.Serve(ctx, addr, router, r.logger, ready)
}
