package service_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/mocks"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newUser(t *testing.T, ssoID, name string, skills ...domain.Skill) *domain.User {
	t.Helper()
	user, err := domain.NewUser(ssoID, name, fmt.Sprintf("%s@example.com", ssoID), domain.RoleSoftwareEngineer)
	require.NoError(t, err)
	user.Skills = skills
	user.ExperienceYears = 5
	return user
}

func TestUserService_GetUserBySSOID(t *testing.T) {
	t.Parallel()

	user := newUser(t, "e100", "Ana")

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		mockUserStore := new(mocks.TestifyMockUserStore)
		mockUserStore.On("GetBySSOID", mock.Anything, "e100").Return(user, nil)

		svc := service.NewUserService(mockUserStore, quietLogger())
		got, err := svc.GetUserBySSOID(context.Background(), "e100")

		require.NoError(t, err)
		assert.Equal(t, user, got)
		mockUserStore.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		mockUserStore := new(mocks.TestifyMockUserStore)
		mockUserStore.On("GetBySSOID", mock.Anything, "nobody").Return(nil, store.ErrUserNotFound)

		svc := service.NewUserService(mockUserStore, quietLogger())
		_, err := svc.GetUserBySSOID(context.Background(), "nobody")

		assert.ErrorIs(t, err, store.ErrUserNotFound)
		mockUserStore.AssertExpectations(t)
	})
}

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	t.Run("valid user is stored", func(t *testing.T) {
		t.Parallel()
		user := newUser(t, "e101", "Ben")
		mockUserStore := new(mocks.TestifyMockUserStore)
		mockUserStore.On("Create", mock.Anything, user).Return(nil)

		svc := service.NewUserService(mockUserStore, quietLogger())
		require.NoError(t, svc.CreateUser(context.Background(), user))
		mockUserStore.AssertExpectations(t)
	})

	t.Run("invalid user never reaches the store", func(t *testing.T) {
		t.Parallel()
		user := newUser(t, "e102", "Cy")
		user.Email = "not-an-email"
		mockUserStore := new(mocks.TestifyMockUserStore)

		svc := service.NewUserService(mockUserStore, quietLogger())
		err := svc.CreateUser(context.Background(), user)

		assert.ErrorIs(t, err, domain.ErrValidation)
		mockUserStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate is wrapped", func(t *testing.T) {
		t.Parallel()
		user := newUser(t, "e103", "Dee")
		mockUserStore := new(mocks.TestifyMockUserStore)
		mockUserStore.On("Create", mock.Anything, user).Return(store.ErrEmailExists)

		svc := service.NewUserService(mockUserStore, quietLogger())
		err := svc.CreateUser(context.Background(), user)

		assert.True(t, errors.Is(err, store.ErrDuplicate))
	})
}

func TestUserService_ListUsers(t *testing.T) {
	t.Parallel()

	users := []*domain.User{newUser(t, "a", "A"), newUser(t, "b", "B")}
	mockUserStore := new(mocks.TestifyMockUserStore)
	mockUserStore.On("List", mock.Anything).Return(users, nil)

	svc := service.NewUserService(mockUserStore, quietLogger())
	got, err := svc.ListUsers(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 2)
}
