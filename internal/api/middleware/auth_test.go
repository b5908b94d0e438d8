package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/mocks"
	"github.com/phrazzld/skillmatch-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name           string
		authHeader     string
		validateErr    error
		claims         *auth.Claims
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer valid-token",
			claims:         &auth.Claims{UserID: userID, SSOID: "e100"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "lowercase scheme",
			authHeader:     "bearer valid-token",
			claims:         &auth.Claims{UserID: userID, SSOID: "e100"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing auth header",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Authorization header required",
		},
		{
			name:           "invalid auth format",
			authHeader:     "Basic abc",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid authorization format",
		},
		{
			name:           "empty token",
			authHeader:     "Bearer   ",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid authorization format",
		},
		{
			name:           "expired token",
			authHeader:     "Bearer expired-token",
			validateErr:    auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Token expired",
		},
		{
			name:           "wrong token type",
			authHeader:     "Bearer refresh-token",
			validateErr:    auth.ErrWrongTokenType,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid token",
		},
		{
			name:           "unexpected failure",
			authHeader:     "Bearer token",
			validateErr:    errors.New("key store unavailable at postgres://admin:secret@db:5432"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Authentication error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			jwtService := &mocks.MockJWTService{
				ValidateErr: tt.validateErr,
				Claims:      tt.claims,
			}
			mw := NewAuthMiddleware(jwtService)

			var capturedUserID uuid.UUID
			var capturedSSO string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedUserID, _ = GetUserID(r)
				capturedSSO, _ = r.Context().Value(shared.SSOIDContextKey).(string)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, userID, capturedUserID)
				assert.Equal(t, "e100", capturedSSO)
				return
			}
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestGetUserID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetUserID(req)
	assert.False(t, ok)

	id := uuid.New()
	jwtService := &mocks.MockJWTService{Claims: &auth.Claims{UserID: id}}
	var got uuid.UUID
	handler := NewAuthMiddleware(jwtService).Authenticate(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, ok = GetUserID(r)
	}))

	req.Header.Set("Authorization", "Bearer t")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, id, got)
}
