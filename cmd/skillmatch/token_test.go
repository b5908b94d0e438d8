package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/mocks"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

func TestIssueToken(t *testing.T) {
	t.Parallel()

	known := &domain.User{ID: domain.UserIDFromSSO("E001"), SSOID: "E001", Role: domain.RoleSoftwareEngineer}

	users := &mocks.MockUserService{
		GetUserBySSOIDFn: func(_ context.Context, ssoID string) (*domain.User, error) {
			switch ssoID {
			case "E001":
				return known, nil
			case "E500":
				return nil, errors.New("connection reset")
			default:
				return nil, fmt.Errorf("failed to retrieve user by sso id: %w", store.ErrUserNotFound)
			}
		},
	}

	tests := []struct {
		name      string
		ssoID     string
		jwt       *mocks.MockJWTService
		wantToken string
		wantErr   string
	}{
		{name: "known user", ssoID: "E001", jwt: &mocks.MockJWTService{Token: "signed"}, wantToken: "signed"},
		{name: "unknown user", ssoID: "E404", jwt: &mocks.MockJWTService{Token: "signed"}, wantErr: `no user with SSO ID "E404"`},
		{name: "lookup failure", ssoID: "E500", jwt: &mocks.MockJWTService{Token: "signed"}, wantErr: "failed to look up user"},
		{name: "signing failure", ssoID: "E001", jwt: &mocks.MockJWTService{Err: errors.New("bad key")}, wantErr: "failed to generate token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := issueToken(context.Background(), users, tt.jwt, tt.ssoID)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestMigrateCommand_ValidatesArgs(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"migrate"}, {"migrate", "sideways"}, {"migrate", "up", "down"}} {
		_, _, err := execute(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestTokenCommand_RequiresSSOID(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sso-id")
}
