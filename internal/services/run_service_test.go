package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betascale/internal/runstore"
	"betascale/internal/shared/testutil"
)

func newRunServiceEnv(t *testing.T) (*RunService, *runstore.Store) {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	store, err := runstore.Open(context.Background(),
		filepath.Join(t.TempDir(), "runs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewRunService(store, logger), store
}

func seedRun(t *testing.T, store *runstore.Store, id, status string, startedAt time.Time, outputs []string) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, runstore.Run{
		ID:         id,
		SourceFile: id + ".csv",
		DateTag:    "2024_06_01",
		Format:     "csv",
		StartedAt:  startedAt,
	}))

	switch status {
	case runstore.StatusCompleted:
		require.NoError(t, store.Complete(ctx, id, runstore.Run{
			Rows:        4,
			Factors:     3,
			OutputFiles: outputs,
		}))
	case runstore.StatusFailed:
		require.NoError(t, store.Fail(ctx, id, assert.AnError, 10))
	}
}

func TestRunServiceListNewestFirst(t *testing.T) {
	svc, store := newRunServiceEnv(t)
	base := time.Now().Add(-time.Hour)

	seedRun(t, store, "run-old", runstore.StatusCompleted, base, nil)
	seedRun(t, store, "run-mid", runstore.StatusFailed, base.Add(time.Minute), nil)
	seedRun(t, store, "run-new", runstore.StatusCompleted, base.Add(2*time.Minute), nil)

	runs, err := svc.List(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[2].ID)
}

func TestRunServiceListFiltersByStatus(t *testing.T) {
	svc, store := newRunServiceEnv(t)
	base := time.Now().Add(-time.Hour)

	seedRun(t, store, "run-ok", runstore.StatusCompleted, base, nil)
	seedRun(t, store, "run-bad", runstore.StatusFailed, base.Add(time.Minute), nil)
	seedRun(t, store, "run-live", "", base.Add(2*time.Minute), nil)

	failed, err := svc.List(context.Background(), 10, runstore.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "run-bad", failed[0].ID)

	running, err := svc.List(context.Background(), 10, runstore.StatusRunning)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "run-live", running[0].ID)
}

func TestRunServiceGet(t *testing.T) {
	svc, store := newRunServiceEnv(t)
	seedRun(t, store, "run-1", runstore.StatusCompleted, time.Now(), nil)

	run, err := svc.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, runstore.ErrNotFound)
}

func TestRunServiceOutputFile(t *testing.T) {
	svc, store := newRunServiceEnv(t)

	dir := t.TempDir()
	existing := filepath.Join(dir, "transformed_factor_betas_2024_06_01.csv")
	require.NoError(t, os.WriteFile(existing, []byte("data"), 0o644))
	missing := filepath.Join(dir, "standardized_factor_betas_2024_06_01.csv")

	seedRun(t, store, "run-1", runstore.StatusCompleted, time.Now(),
		[]string{existing, missing})

	path, err := svc.OutputFile(context.Background(), "run-1", filepath.Base(existing))
	require.NoError(t, err)
	assert.Equal(t, existing, path)

	// Recorded but deleted from disk.
	_, err = svc.OutputFile(context.Background(), "run-1", filepath.Base(missing))
	assert.ErrorIs(t, err, ErrOutputFileNotFound)

	// Never recorded for this run.
	_, err = svc.OutputFile(context.Background(), "run-1", "other.csv")
	assert.ErrorIs(t, err, ErrOutputFileNotFound)

	// Path components are stripped before matching.
	_, err = svc.OutputFile(context.Background(), "run-1", "../../etc/passwd")
	assert.ErrorIs(t, err, ErrOutputFileNotFound)

	_, err = svc.OutputFile(context.Background(), "missing", "any.csv")
	assert.ErrorIs(t, err, runstore.ErrNotFound)
}

func TestRunServiceWithoutStore(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewRunService(nil, logger)

	_, err := svc.List(context.Background(), 10, "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.Get(context.Background(), "run-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.OutputFile(context.Background(), "run-1", "file.csv")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
