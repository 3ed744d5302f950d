package http

import (
	"context"

	"betascale/internal/runstore"
)

// RunServiceInterface defines the service surface the runs handler needs.
type RunServiceInterface interface {
	List(ctx context.Context, limit int, status string) ([]runstore.Run, error)
	Get(ctx context.Context, id string) (*runstore.Run, error)
	OutputFile(ctx context.Context, runID, filename string) (string, error)
}
