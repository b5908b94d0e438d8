package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/platform/postgres"
)

// bootstrap loads configuration, builds the process logger and opens the
// database pool. The caller owns the returned pool.
func bootstrap(ctx context.Context) (*config.Config, *slog.Logger, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))
	log.Debug("optional integrations",
		slog.Bool("mail", cfg.Mail.Enabled),
		slog.Bool("redis", cfg.Redis.URL != ""),
		slog.Bool("rabbitmq", cfg.RabbitMQ.URL != ""),
		slog.Bool("llm", cfg.LLM.Enabled))

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up database: %w", err)
	}
	return cfg, log, db, nil
}

// migrate runs one goose command against the embedded migrations.
func migrate(ctx context.Context, db *sql.DB, command string, log *slog.Logger) error {
	log.Info("running migrations", slog.String("command", command))
	if err := postgres.Migrate(ctx, db, command, log); err != nil {
		return fmt.Errorf("migration %q failed: %w", command, err)
	}
	return nil
}
