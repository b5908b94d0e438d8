package api

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
)

// Upload limits for import endpoints.
const (
	MaxUploadBytes  = 10 << 20
	uploadFieldName = "file"
	sniffBytes      = 512
)

// getUserIDFromContext extracts the authenticated user's UUID from the request context.
// The user ID is expected to be placed in the context by the authentication middleware.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// getPathUUID extracts a UUID from the URL path parameters.
//
// Returns:
//   - (uuid.UUID, nil): The parsed UUID if valid
//   - (uuid.UUID{}, error): A zero UUID and an error matching domain.ErrInvalidID
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// getQueryUUID parses an optional UUID query parameter. A missing
// parameter yields nil.
func getQueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, name)
	}
	return &id, nil
}

// getQueryInt parses an optional non-negative integer query parameter.
func getQueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewInputError("query", name, name, "must be a non-negative integer")
	}
	return n, nil
}

// getFormat reads ?format=csv|xlsx, defaulting to csv.
func getFormat(r *http.Request) (tabular.Format, error) {
	return tabular.ParseFormat(r.URL.Query().Get("format"))
}

// readUpload returns the uploaded "file" part and its detected format. The
// caller must close the returned reader.
func readUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, tabular.Format, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("%w: expected multipart form with a %q field", domain.ErrInvalidFormat, uploadFieldName)
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", fmt.Errorf("%w: no file uploaded", domain.ErrInvalidFormat)
		}
		return nil, "", fmt.Errorf("%w: %w", domain.ErrInvalidFormat, err)
	}

	buffered := bufio.NewReaderSize(file, sniffBytes)
	head, _ := buffered.Peek(sniffBytes)
	format := tabular.DetectFormat(header.Filename, head)

	return struct {
		io.Reader
		io.Closer
	}{buffered, file}, format, nil
}

// writeFile renders an export into memory and sends it as a download.
// Export errors are returned before anything is written to w.
func writeFile(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	format tabular.Format,
	export func(io.Writer) error,
) error {
	var buf bytes.Buffer
	if err := export(&buf); err != nil {
		return err
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+string(format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.DebugContext(r.Context(), "client went away during download", slog.String("error", err.Error()))
	}
	return nil
}

// respondImportError reports a failed import. A file without usable rows
// still returns its row errors.
func respondImportError(w http.ResponseWriter, r *http.Request, report *service.ImportReport, err error, fallback string) {
	if report != nil && errors.Is(err, service.ErrEmptyImport) {
		shared.RespondWithJSON(w, r, http.StatusUnprocessableEntity, ImportResponse{
			Message:      GetSafeErrorMessage(err),
			ImportReport: report,
		})
		return
	}
	HandleAPIError(w, r, err, fallback)
}
