package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/generation"
	"github.com/phrazzld/skillmatch-api/internal/lock"
	"github.com/phrazzld/skillmatch-api/internal/mocks"
	"github.com/phrazzld/skillmatch-api/internal/platform/mailer"
	"github.com/phrazzld/skillmatch-api/internal/platform/rabbitmq"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/service/auth"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *application {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()

	return &application{
		config: &config.Config{
			Server:   config.ServerConfig{Port: 8080, LogLevel: "info"},
			Auth:     config.AuthConfig{TokenLifetimeMinutes: 60},
			Matching: config.MatchingConfig{RunTimeoutSeconds: 30},
		},
		logger: logger,
		jwtService: &mocks.MockJWTService{
			Token:  "signed",
			Claims: &auth.Claims{UserID: userID, SSOID: "e100"},
		},
		userService: &mocks.MockUserService{
			GetUserBySSOIDFn: func(_ context.Context, ssoID string) (*domain.User, error) {
				if ssoID != "e100" {
					return nil, store.ErrUserNotFound
				}
				return &domain.User{ID: userID, SSOID: ssoID}, nil
			},
			ListUsersFn: func(context.Context) ([]*domain.User, error) {
				return []*domain.User{{ID: userID, SSOID: "e100"}}, nil
			},
		},
		taskService: &mocks.MockTaskService{
			UpdateTaskFn: func(_ context.Context, id uuid.UUID, _ service.TaskUpdate) (*domain.Task, error) {
				return &domain.Task{ID: id, Status: domain.TaskStatusCompleted}, nil
			},
		},
		importService: &mocks.MockImportService{},
		exportService: &mocks.MockExportService{},
		assignmentService: &mocks.MockAssignmentService{
			RunFn: func(context.Context) (*service.RunResult, error) {
				return &service.RunResult{TotalTasks: 1, AssignedTasks: 1}, nil
			},
		},
	}
}

func TestSetupRouter(t *testing.T) {
	t.Parallel()

	router := testApp(t).setupRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		auth       bool
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", false, http.StatusOK},
		{"token for known user", http.MethodPost, "/api/auth/token", `{"sso_id":"e100"}`, false, http.StatusOK},
		{"token for unknown user", http.MethodPost, "/api/auth/token", `{"sso_id":"e404"}`, false, http.StatusUnauthorized},
		{"users require auth", http.MethodGet, "/api/users", "", false, http.StatusUnauthorized},
		{"users with token", http.MethodGet, "/api/users", "", true, http.StatusOK},
		{"create user", http.MethodPost, "/api/users",
			`{"sso_id":"e200","name":"Ben","email":"ben@example.com","role":"Software Engineer"}`, true, http.StatusCreated},
		{"update task", http.MethodPut, "/api/tasks/" + uuid.NewString(), `{"status":"completed"}`, true, http.StatusOK},
		{"update task requires auth", http.MethodPut, "/api/tasks/" + uuid.NewString(), `{}`, false, http.StatusUnauthorized},
		{"run with token", http.MethodPost, "/api/assignments/run", "", true, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/cards", "", true, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.auth {
				req.Header.Set("Authorization", "Bearer signed")
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
		})
	}
}

func TestSetupInfrastructure_Defaults(t *testing.T) {
	t.Parallel()

	app := testApp(t)
	require.NoError(t, app.setupInfrastructure(context.Background()))

	assert.IsType(t, &lock.InProcess{}, app.locker)
	assert.IsType(t, &rabbitmq.NoopPublisher{}, app.publisher)
	assert.IsType(t, &mailer.LogNotifier{}, app.notifier)
	assert.IsType(t, generation.TemplateExplainer{}, app.explainer)
	assert.Nil(t, app.redisClient)
}
