package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupDatabase writes a config file from the template when none exists, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.writePlain("%s\n", ui.Styles.OK("Config file created at %s", r.configPath))
			r.writePlain("%s\n", ui.Styles.Help("Set client_id and client_secret, then run 'spx auth login'."))
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	r.logger.Info("setup complete", "database", r.config.Database.Path, "migrations", len(applied))
	r.writePlain("%s\n", ui.Styles.OK("Database ready at %s (%d migrations applied)", r.config.Database.Path, len(applied)))
	return nil
}

// SetupStatus lists the applied migrations.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(applied, cmd.Bool("pretty"))
	}

	r.writeHeader("Applied migrations")
	for _, m := range applied {
		r.writePlain("%4d  %s\n", m.Version, m.AppliedAt.Local().Format(time.DateTime))
	}
	return nil
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	r.writePlain("%s\n", ui.Styles.OK("Rolled back the latest migration"))
	return nil
}
