// Command skillmatch runs the assignment engine and its maintenance tasks
// from the terminal.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "skillmatch",
		Short: "SkillMatch - skill-based task assignment",
		Long: `skillmatch assigns tasks to the people best suited to them,
scoring skill overlap, experience and remaining capacity.

Use "assign" to run the engine offline over exported files, "seed" to
generate sample data, and "migrate" or "token" against a configured
deployment.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newAssignCmd(),
		newSeedCmd(),
		newTokenCmd(logger),
		newMigrateCmd(logger),
	)
	return root
}
