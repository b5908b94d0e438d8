package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/platform/postgres"
)

var migrateCommands = []string{"up", "down", "status", "version", "reset"}

func newMigrateCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|reset]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			db, err := postgres.Open(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db, args[0], logger); err != nil {
				return fmt.Errorf("migration %q failed: %w", args[0], err)
			}
			return nil
		},
	}
}
