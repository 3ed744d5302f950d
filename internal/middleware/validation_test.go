package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "betascale/internal/errors"
	"betascale/internal/shared/testutil"
)

type transformRequest struct {
	Format  string `json:"format" validate:"required,outputformat"`
	DateTag string `json:"date_tag" validate:"omitempty,datetag"`
	Sheet   string `json:"sheet" validate:"omitempty,max=64"`
	File    string `json:"file" validate:"omitempty,filename"`
}

func newValidationMiddleware(t *testing.T) *ValidationMiddleware {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return NewValidationMiddleware(logger, errorHandler)
}

func TestValidateStruct(t *testing.T) {
	m := newValidationMiddleware(t)

	t.Run("valid request passes", func(t *testing.T) {
		req := transformRequest{
			Format:  "xlsx",
			DateTag: "2023_11_15",
			File:    "factor_betas_2023_11_15.csv",
		}
		assert.NoError(t, m.ValidateStruct(req))
	})

	tests := []struct {
		name      string
		req       transformRequest
		wantField string
	}{
		{
			name:      "missing format",
			req:       transformRequest{},
			wantField: "format",
		},
		{
			name:      "bad format",
			req:       transformRequest{Format: "parquet"},
			wantField: "format",
		},
		{
			name:      "bad date tag",
			req:       transformRequest{Format: "csv", DateTag: "2023-11-15"},
			wantField: "date_tag",
		},
		{
			name:      "date tag with letters",
			req:       transformRequest{Format: "csv", DateTag: "2O23_11_15"},
			wantField: "date_tag",
		},
		{
			name:      "traversal in filename",
			req:       transformRequest{Format: "csv", File: "../etc/passwd"},
			wantField: "file",
		},
		{
			name:      "oversized sheet name",
			req:       transformRequest{Format: "csv", Sheet: strings.Repeat("s", 65)},
			wantField: "sheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateStruct(tt.req)
			require.Error(t, err)

			apiErr, ok := err.(*apierrors.APIError)
			require.True(t, ok)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			require.NotEmpty(t, details.Errors)

			found := false
			for _, ve := range details.Errors {
				if ve.Field == tt.wantField {
					found = true
				}
			}
			assert.True(t, found, "expected a validation error for field %q, got %v", tt.wantField, details.Errors)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := ContentTypeValidator("multipart/form-data")(next)

	t.Run("GET skips validation", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/test", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("allowed content type with boundary", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/test", strings.NewReader("body"))
		r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/test", strings.NewReader("{}"))
		r.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

		var resp apierrors.APIError
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", resp.ErrorCode)
	})
}

func TestMaxUploadSize(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := MaxUploadSize(16)(next)

	t.Run("under the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/test", strings.NewReader("small"))
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared size over the limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/test", strings.NewReader(strings.Repeat("x", 64)))
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

		var resp apierrors.APIError
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "PAYLOAD_TOO_LARGE", resp.ErrorCode)
	})
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	v := NewQueryParamValidator(logger, errorHandler)

	t.Run("ValidateInt", func(t *testing.T) {
		tests := []struct {
			name     string
			query    string
			want     int
			wantOK   bool
			wantCode int
		}{
			{"missing uses default", "", 25, true, 0},
			{"valid value", "limit=50", 50, true, 0},
			{"not an integer", "limit=abc", 0, false, http.StatusBadRequest},
			{"out of range", "limit=500", 0, false, http.StatusBadRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := httptest.NewRecorder()
				r := httptest.NewRequest("GET", "/api/runs?"+tt.query, nil)

				got, ok := v.ValidateInt(w, r, "limit", 1, 100, 25)

				assert.Equal(t, tt.wantOK, ok)
				if tt.wantOK {
					assert.Equal(t, tt.want, got)
				} else {
					assert.Equal(t, tt.wantCode, w.Code)
				}
			})
		}
	})

	t.Run("ValidateEnum", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/runs?format=xlsx", nil)

		got, ok := v.ValidateEnum(w, r, "format", []string{"csv", "xlsx"}, "csv")
		assert.True(t, ok)
		assert.Equal(t, "xlsx", got)

		w = httptest.NewRecorder()
		r = httptest.NewRequest("GET", "/api/runs?format=parquet", nil)

		_, ok = v.ValidateEnum(w, r, "format", []string{"csv", "xlsx"}, "csv")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
