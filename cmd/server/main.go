// Package main implements the entry point for the SkillMatch API server,
// which assigns pending tasks to employees by skill fit and workload and
// notifies assignees by email.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status, version, reset) and exit")
	skipMigrations := flag.Bool("skip-migrations", false, "do not apply pending migrations on startup")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrateCmd, *skipMigrations); err != nil {
		fmt.Fprintf(os.Stderr, "skillmatch server: %v\n", err)
		os.Exit(1)
	}
}

// run performs the startup sequence: configuration, logging, database,
// migrations, then the application itself. It blocks until ctx is
// cancelled and the server has shut down.
func run(ctx context.Context, migrateCmd string, skipMigrations bool) error {
	cfg, logger, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return migrate(ctx, db, migrateCmd, logger)
	}
	if !skipMigrations {
		if err := migrate(ctx, db, "up", logger); err != nil {
			_ = db.Close()
			return err
		}
	}

	app, err := newApplication(ctx, cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	logger.Info("SkillMatch API starting", slog.Int("port", cfg.Server.Port))
	return app.Run(ctx)
}
