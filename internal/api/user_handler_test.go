package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/mocks"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_ListUsers(t *testing.T) {
	t.Parallel()

	ana, err := domain.NewUser("e100", "Ana", "ana@example.com", domain.RoleSoftwareEngineer)
	require.NoError(t, err)
	users := &mocks.MockUserService{
		ListUsersFn: func(context.Context) ([]*domain.User, error) {
			return []*domain.User{ana}, nil
		},
	}
	handler := NewUserHandler(users, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())

	rec := httptest.NewRecorder()
	handler.ListUsers(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sso_id":"e100"`)
	assert.Contains(t, rec.Body.String(), `"is_available":true`)

	failing := NewUserHandler(&mocks.MockUserService{DefaultError: errors.New("pq: timeout")},
		&mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())
	rec = httptest.NewRecorder()
	failing.ListUsers(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to list users", decodeError(t, rec))
}

func TestUserHandler_CreateUser(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		var created *domain.User
		users := &mocks.MockUserService{
			CreateUserFn: func(_ context.Context, user *domain.User) error {
				created = user
				return nil
			},
		}
		handler := NewUserHandler(users, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())

		body := `{"sso_id":" E200 ","name":"Ana Silva","email":"Ana@Example.com","role":"software engineer",` +
			`"skills":[{"skill":"Go","level":8}],"experience_years":4,"current_workload":30}`
		rec := httptest.NewRecorder()
		handler.CreateUser(rec, httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, created)
		assert.Equal(t, domain.UserIDFromSSO("E200"), created.ID)
		assert.Equal(t, "E200", created.SSOID)
		assert.Equal(t, "ana@example.com", created.Email)
		assert.Equal(t, domain.RoleSoftwareEngineer, created.Role)
		assert.Equal(t, domain.DepartmentEngineering, created.Department)
		assert.True(t, created.IsAvailable)
		assert.Contains(t, rec.Body.String(), `"sso_id":"E200"`)
	})

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing email",
			body:       `{"sso_id":"E1","name":"Ana","role":"QA Engineer"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid Email: required field",
		},
		{
			name:       "workload out of range",
			body:       `{"sso_id":"E1","name":"Ana","email":"a@b.co","role":"QA Engineer","current_workload":150}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid CurrentWorkload: too large",
		},
		{
			name:       "malformed json",
			body:       `{"sso_id":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "unknown role",
			body:       `{"sso_id":"E1","name":"Ana","email":"a@b.co","role":"Wizard"}`,
			serviceErr: domain.NewInputError(domain.KindUser, "E1", "role", "is not a supported role"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid user: role is not a supported role",
		},
		{
			name:       "duplicate sso id",
			body:       `{"sso_id":"E1","name":"Ana","email":"a@b.co","role":"QA Engineer"}`,
			serviceErr: fmt.Errorf("failed to create user: %w", store.ErrSSOIDExists),
			wantStatus: http.StatusConflict,
			wantError:  "SSO ID already exists",
		},
		{
			name:       "duplicate email",
			body:       `{"sso_id":"E2","name":"Ana","email":"a@b.co","role":"QA Engineer"}`,
			serviceErr: fmt.Errorf("failed to create user: %w", store.ErrEmailExists),
			wantStatus: http.StatusConflict,
			wantError:  "Email already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			users := &mocks.MockUserService{DefaultError: tt.serviceErr}
			handler := NewUserHandler(users, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())

			rec := httptest.NewRecorder()
			handler.CreateUser(rec, httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec))
		})
	}
}

func TestUserHandler_ImportUsers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		report     *service.ImportReport
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "imported",
			report:     &service.ImportReport{Imported: 1, Updated: 1},
			wantStatus: http.StatusOK,
			wantBody:   `"updated":1`,
		},
		{
			name:       "missing columns",
			err:        errors.Join(domain.ErrInvalidFormat, tabular.ErrMissingColumns),
			wantStatus: http.StatusBadRequest,
			wantBody:   "Missing required columns",
		},
		{
			name:       "store failure",
			err:        service.NewServiceError("import_users", "failed to upsert", errors.New("deadlock")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Failed to import users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			imports := &mocks.MockImportService{
				ImportUsersFn: func(context.Context, io.Reader, tabular.Format) (*service.ImportReport, error) {
					return tt.report, tt.err
				},
			}
			handler := NewUserHandler(&mocks.MockUserService{}, imports, &mocks.MockExportService{}, discardLogger())

			rec := httptest.NewRecorder()
			handler.ImportUsers(rec, multipartUpload(t, "/api/users/import", "employees.csv", []byte("sso_id\ne100\n")))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "deadlock")
		})
	}
}

func TestUserHandler_ExportUsers(t *testing.T) {
	t.Parallel()

	exports := &mocks.MockExportService{
		ExportUsersFn: func(_ context.Context, w io.Writer, _ tabular.Format) error {
			_, err := io.WriteString(w, "sso_id\ne100\n")
			return err
		},
	}
	handler := NewUserHandler(&mocks.MockUserService{}, &mocks.MockImportService{}, exports, discardLogger())

	rec := httptest.NewRecorder()
	handler.ExportUsers(rec, httptest.NewRequest(http.MethodGet, "/api/users/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="users.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "sso_id\ne100\n", rec.Body.String())

	failing := NewUserHandler(&mocks.MockUserService{}, &mocks.MockImportService{},
		&mocks.MockExportService{DefaultError: errors.New("boom")}, discardLogger())
	rec = httptest.NewRecorder()
	failing.ExportUsers(rec, httptest.NewRequest(http.MethodGet, "/api/users/export", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
