package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/musicman/internal/formatter"
	"github.com/desertthunder/musicman/internal/repositories"
	"github.com/desertthunder/musicman/internal/shared"
	"github.com/urfave/cli/v3"
)

// openEvents opens the configured audit database.
func (r *Runner) openEvents(path string) (*repositories.EventRepository, func() error, error) {
	config, err := r.loadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewEventRepository(db), db.Close, nil
}

// EventsList prints recorded session events, newest first.
func (r *Runner) EventsList(ctx context.Context, cmd *cli.Command) error {
	format := formatter.Format(cmd.String("format"))
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	repo, closeDB, err := r.openEvents(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closeDB()

	events, err := repo.List(map[string]any{
		"user_id": cmd.String("user"),
		"kind":    cmd.String("kind"),
		"limit":   int(limit),
	})
	if err != nil {
		return err
	}

	return formatter.Write(r.output, events, format)
}

// EventsPrune deletes session events older than --older-than.
func (r *Runner) EventsPrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	repo, closeDB, err := r.openEvents(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closeDB()

	removed, err := repo.Prune(time.Now().Add(-age))
	if err != nil {
		return err
	}

	r.logger.Info("pruned session events", "removed", removed, "older_than", age)
	return r.writePlain("%s\n", formatter.Success(fmt.Sprintf("✓ Removed %d events", removed)))
}
