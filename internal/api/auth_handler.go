package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/service/auth"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// AuthHandler issues access tokens for known users.
type AuthHandler struct {
	userService service.UserService
	jwtService  auth.JWTService
	authConfig  *config.AuthConfig
	validator   *validator.Validate
	timeFunc    func() time.Time
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userService service.UserService,
	jwtService auth.JWTService,
	authConfig *config.AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		authConfig:  authConfig,
		validator:   validator.New(),
		timeFunc:    time.Now,
		logger:      logger.With(slog.String("component", "auth_handler")),
	}
}

// WithTimeFunc replaces the clock used for expiry timestamps.
func (h *AuthHandler) WithTimeFunc(timeFunc func() time.Time) *AuthHandler {
	h.timeFunc = timeFunc
	return h
}

// Token handles POST /api/auth/token. Identity is asserted by SSO ID; the
// user must already exist.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req TokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.SSOID = strings.TrimSpace(req.SSOID)
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userService.GetUserBySSOID(r.Context(), req.SSOID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Unknown SSO ID", err,
				shared.WithElevatedLogLevel())
			return
		}
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	expiresAt := h.timeFunc().UTC().Add(time.Duration(h.authConfig.TokenLifetimeMinutes) * time.Minute)

	log.Info("issued access token", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		UserID:      user.ID,
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}
