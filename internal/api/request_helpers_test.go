package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multipartUpload builds a request carrying content as the "file" field.
func multipartUpload(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadFieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func withPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetUserIDFromContext(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name   string
		value  any
		wantID uuid.UUID
		wantOK bool
	}{
		{"valid", id, id, true},
		{"nil uuid", uuid.Nil, uuid.Nil, false},
		{"wrong type", id.String(), uuid.Nil, false},
		{"missing", nil, uuid.Nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.value != nil {
				req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, tt.value))
			}
			got, ok := getUserIDFromContext(req)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got)
		})
	}
}

func TestGetPathUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	got, err := getPathUUID(withPathParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String()), "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = getPathUUID(withPathParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "not-a-uuid"), "id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = getPathUUID(httptest.NewRequest(http.MethodGet, "/", nil), "id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestGetQueryParams(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?run_id="+runID.String()+"&limit=7&format=xlsx", nil)

	gotRun, err := getQueryUUID(req, "run_id")
	require.NoError(t, err)
	require.NotNil(t, gotRun)
	assert.Equal(t, runID, *gotRun)

	limit, err := getQueryInt(req, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 7, limit)

	format, err := getFormat(req)
	require.NoError(t, err)
	assert.Equal(t, tabular.FormatXLSX, format)

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	gotRun, err = getQueryUUID(empty, "run_id")
	require.NoError(t, err)
	assert.Nil(t, gotRun)
	limit, err = getQueryInt(empty, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)
	format, err = getFormat(empty)
	require.NoError(t, err)
	assert.Equal(t, tabular.FormatCSV, format)

	bad := httptest.NewRequest(http.MethodGet, "/?run_id=x&limit=-1&format=pdf", nil)
	_, err = getQueryUUID(bad, "run_id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = getQueryInt(bad, "limit", 50)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = getFormat(bad)
	assert.ErrorIs(t, err, tabular.ErrUnsupportedFormat)
}

func TestReadUpload(t *testing.T) {
	t.Parallel()

	t.Run("detects format and keeps sniffed bytes", func(t *testing.T) {
		t.Parallel()

		content := []byte("sso_id,name\ne100,Ana\n")
		req := multipartUpload(t, "/api/users/import", "people.csv", content)
		rec := httptest.NewRecorder()

		file, format, err := readUpload(rec, req)
		require.NoError(t, err)
		defer func() { _ = file.Close() }()

		assert.Equal(t, tabular.FormatCSV, format)
		got, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("sniffs xlsx without extension", func(t *testing.T) {
		t.Parallel()

		req := multipartUpload(t, "/api/users/import", "upload", []byte("PK\x03\x04rest"))
		file, format, err := readUpload(httptest.NewRecorder(), req)
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, tabular.FormatXLSX, format)
	})

	t.Run("not multipart", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/api/users/import", bytes.NewBufferString("a,b"))
		req.Header.Set("Content-Type", "text/csv")
		_, _, err := readUpload(httptest.NewRecorder(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidFormat)
	})
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	t.Run("sets download headers", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/export", nil)
		err := writeFile(rec, req, "tasks", tabular.FormatCSV, func(w io.Writer) error {
			_, err := io.WriteString(w, "title\nShip it\n")
			return err
		})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="tasks.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "14", rec.Header().Get("Content-Length"))
		assert.Equal(t, "title\nShip it\n", rec.Body.String())
	})

	t.Run("export error writes nothing", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/export", nil)
		boom := errors.New("boom")
		err := writeFile(rec, req, "tasks", tabular.FormatXLSX, func(w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, rec.Body.String())
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
	})
}
