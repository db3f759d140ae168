// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand runs the HTTP backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the backend HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.host and server.port",
			},
		},
		Action: r.Serve,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a configuration file from the built-in template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Load the configuration and check required settings",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigValidate,
			},
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize local resources",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the audit database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// eventsCommand inspects the session audit log
func eventsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Inspect the session audit log",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded session events, newest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Only events for this Spotify user id",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only events of this kind (stored, refresh-succeeded, refresh-failed, cleared, swept)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of events to return",
						Value:   50,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table, text, csv or json",
						Value: "table",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Shorthand for --format json",
					},
				},
				Action: r.EventsList,
			},
			{
				Name:  "prune",
				Usage: "Delete session events older than a duration",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age cutoff, e.g. 720h",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: r.EventsPrune,
			},
		},
	}
}
