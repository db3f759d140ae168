package main

import (
	"context"
	"os"

	"github.com/desertthunder/musicman/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger: logger,
		Getenv: os.Getenv,
	})

	app := &cli.Command{
		Name:     "musicman",
		Usage:    "Spotify backend-for-frontend with a server-side session cache",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
