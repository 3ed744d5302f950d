package http

import (
	"context"

	"betascale/internal/services"
)

// TransformServiceInterface defines the service surface the transform
// handler needs.
type TransformServiceInterface interface {
	Transform(ctx context.Context, req services.TransformRequest) (*services.RunResult, error)
}
