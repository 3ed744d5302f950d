package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"betascale/internal/runstore"
)

// RunService exposes recorded run history and access to run output files.
type RunService struct {
	store  *runstore.Store
	logger *slog.Logger
}

// NewRunService creates the service. The store may be nil; every method
// then fails with ErrStoreUnavailable.
func NewRunService(store *runstore.Store, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		store:  store,
		logger: logger.With(slog.String("component", "run_service")),
	}
}

// List returns the most recent runs, newest first. A non-empty status
// keeps only runs in that state.
func (s *RunService) List(ctx context.Context, limit int, status string) ([]runstore.Run, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	runs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if status == "" {
		return runs, nil
	}

	filtered := runs[:0]
	for _, run := range runs {
		if run.Status == status {
			filtered = append(filtered, run)
		}
	}
	return filtered, nil
}

// Get returns one run by ID. Missing runs surface runstore.ErrNotFound.
func (s *RunService) Get(ctx context.Context, id string) (*runstore.Run, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return &run, nil
}

// OutputFile resolves a file name against a run's recorded outputs and
// returns its path on disk. Names not recorded for the run, and recorded
// files that no longer exist, fail with ErrOutputFileNotFound.
func (s *RunService) OutputFile(ctx context.Context, runID, filename string) (string, error) {
	if s.store == nil {
		return "", ErrStoreUnavailable
	}

	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return "", err
	}

	want := filepath.Base(filename)
	for _, path := range run.OutputFiles {
		if filepath.Base(path) != want {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			s.logger.WarnContext(ctx, "recorded output file missing on disk",
				slog.String("run_id", runID),
				slog.String("path", path))
			return "", ErrOutputFileNotFound
		}
		return path, nil
	}
	return "", ErrOutputFileNotFound
}
