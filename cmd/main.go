package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	runner := NewRunner(RunnerOpts{ConfigPath: "config.toml", Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errCommandFailed) {
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "spx",
		Usage:    "Mirror, clean up, and reorganize your Spotify playlists",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   r.loadConfig,
		After:    r.close,
		Commands: r.register(),
	}
}
