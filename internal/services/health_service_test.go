package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betascale/internal/config"
	"betascale/internal/runstore"
	"betascale/internal/shared/testutil"
	"betascale/pkg/contracts"
)

type staticClientCount int

func (c staticClientCount) ClientCount() int { return int(c) }

func newHealthEnv(t *testing.T) (*HealthService, *runstore.Store) {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	dir := t.TempDir()

	store, err := runstore.Open(context.Background(),
		filepath.Join(dir, "runs.db"), logger)
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

	return NewHealthService(store, paths, staticClientCount(3), logger), store
}

func TestHealthCheckAllHealthy(t *testing.T) {
	svc, _ := newHealthEnv(t)

	status := svc.HealthCheck(context.Background())
	assert.Equal(t, HealthStatusHealthy, status.Status)
	assert.Equal(t, contracts.Version, status.Version)
	assert.NotEmpty(t, status.Uptime)
	assert.Positive(t, status.Runtime.Goroutines)

	require.Contains(t, status.Services, "database")
	require.Contains(t, status.Services, "output_dir")
	require.Contains(t, status.Services, "websocket")

	assert.Equal(t, HealthStatusHealthy, status.Services["database"].Status)
	assert.Contains(t, status.Services["database"].Message, "0 runs")
	assert.Equal(t, HealthStatusHealthy, status.Services["output_dir"].Status)
	assert.Equal(t, HealthStatusHealthy, status.Services["websocket"].Status)
	assert.Contains(t, status.Services["websocket"].Message, "3 clients")
}

func TestHealthCheckDisabledComponents(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewHealthService(nil, nil, nil, logger)

	status := svc.HealthCheck(context.Background())
	assert.Equal(t, HealthStatusHealthy, status.Status)
	assert.Equal(t, HealthStatusDisabled, status.Services["database"].Status)
	assert.Equal(t, HealthStatusDisabled, status.Services["output_dir"].Status)
	assert.Equal(t, HealthStatusDisabled, status.Services["websocket"].Status)
}

func TestHealthCheckDegradedOutputDir(t *testing.T) {
	svc, _ := newHealthEnv(t)
	svc.paths = &config.Paths{
		OutputDir: filepath.Join(t.TempDir(), "does", "not", "exist"),
	}

	status := svc.HealthCheck(context.Background())
	assert.Equal(t, HealthStatusDegraded, status.Status)
	assert.Equal(t, HealthStatusUnhealthy, status.Services["output_dir"].Status)
	assert.Equal(t, HealthStatusHealthy, status.Services["database"].Status)
}

func TestHealthCheckUnhealthyDatabase(t *testing.T) {
	svc, store := newHealthEnv(t)
	require.NoError(t, store.Close())

	status := svc.HealthCheck(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, status.Status)
	assert.Equal(t, HealthStatusUnhealthy, status.Services["database"].Status)
}

func TestReadinessCheck(t *testing.T) {
	svc, store := newHealthEnv(t)
	require.NoError(t, svc.ReadinessCheck(context.Background()))

	require.NoError(t, store.Close())
	err := svc.ReadinessCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestLivenessCheck(t *testing.T) {
	svc, _ := newHealthEnv(t)

	live := svc.LivenessCheck()
	assert.Equal(t, "alive", live["status"])
	assert.Contains(t, live, "uptime")
	assert.Contains(t, live, "goroutines")
}

func TestVersionInfo(t *testing.T) {
	svc, _ := newHealthEnv(t)

	version := svc.Version()
	assert.Equal(t, contracts.Version, version["version"])
	assert.Equal(t, contracts.APIVersion, version["api_version"])
	assert.NotEmpty(t, version["go_version"])
}
