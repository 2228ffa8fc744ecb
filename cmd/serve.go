package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve exposes the command facade as a JSON HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	c, err := r.facade()
	if err != nil {
		return err
	}

	addr := r.config.Server.Addr()
	if port := cmd.Int("port"); port > 0 {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, port)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := server.NewAPI(c, r.logger.WithPrefix("api"))
	return server.Serve(ctx, addr, api.Handler(), r.logger, nil)
}
