package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/platform/postgres"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/service/auth"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

func newTokenCmd(logger *slog.Logger) *cobra.Command {
	var ssoID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a stored user",
		Long: `Look up a user by SSO ID and print a signed access token for the
API. Uses the same SKILLMATCH_* configuration as the server.

Example:
  skillmatch token --sso-id E00001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			jwtService, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return fmt.Errorf("failed to initialize JWT service: %w", err)
			}

			db, err := postgres.Open(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			users := service.NewUserService(postgres.NewPostgresUserStore(db, logger), logger)
			token, err := issueToken(ctx, users, jwtService, ssoID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&ssoID, "sso-id", "", "SSO ID of the user")
	_ = cmd.MarkFlagRequired("sso-id")

	return cmd
}

func issueToken(ctx context.Context, users service.UserService, jwtService auth.JWTService, ssoID string) (string, error) {
	user, err := users.GetUserBySSOID(ctx, ssoID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", fmt.Errorf("no user with SSO ID %q", ssoID)
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := jwtService.GenerateToken(ctx, user)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}
