package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betascale/internal/config"
	"betascale/internal/runstore"
	"betascale/internal/services"
	"betascale/internal/shared/testutil"
)

type fixedClientCount int

func (c fixedClientCount) ClientCount() int { return int(c) }

func setupHealthRouter(t *testing.T) (chi.Router, *runstore.Store) {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	dir := t.TempDir()

	store, err := runstore.Open(context.Background(), filepath.Join(dir, "runs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	paths := &config.Paths{
		BaseDir:      dir,
		OutputDir:    filepath.Join(dir, "output"),
		UploadDir:    filepath.Join(dir, "uploads"),
		LogsDir:      filepath.Join(dir, "logs"),
		DatabaseFile: filepath.Join(dir, "runs.db"),
	}
	require.NoError(t, paths.EnsureDirectories())

	service := services.NewHealthService(store, paths, fixedClientCount(2), logger)
	handler := NewHealthHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Mount("/api/health", handler.Routes())
	return r, store
}

func TestHealthHandlerHealthCheck(t *testing.T) {
	router, _ := setupHealthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, services.HealthStatusHealthy, status.Status)
	assert.Contains(t, status.Services, "database")
	assert.Contains(t, status.Services, "output_dir")
	assert.Contains(t, status.Services, "websocket")
	assert.Equal(t, "2 clients connected", status.Services["websocket"].Message)
}

func TestHealthHandlerUnhealthyDatabase(t *testing.T) {
	router, store := setupHealthRouter(t)
	require.NoError(t, store.Close())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, services.HealthStatusUnhealthy, status.Status)
	assert.Equal(t, services.HealthStatusUnhealthy, status.Services["database"].Status)
}

func TestHealthHandlerReadiness(t *testing.T) {
	router, store := setupHealthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])

	require.NoError(t, store.Close())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Contains(t, body["error"], "database")
}

func TestHealthHandlerLiveness(t *testing.T) {
	router, store := setupHealthRouter(t)

	// Liveness ignores dependency state entirely.
	require.NoError(t, store.Close())

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
	assert.NotZero(t, body["goroutines"])
}

func TestHealthHandlerVersion(t *testing.T) {
	router, _ := setupHealthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/version", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
	assert.NotEmpty(t, body["go_version"])
}
