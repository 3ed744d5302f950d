package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"betascale/internal/config"
	"betascale/internal/runstore"
	"betascale/pkg/contracts"
)

// Health states reported for the service and its components.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
	HealthStatusDisabled  = "disabled"
)

// ClientCounter reports how many WebSocket clients are connected. The hub
// satisfies it.
type ClientCounter interface {
	ClientCount() int
}

// ServiceHealth describes one component check.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthStatus is the full health report.
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Runtime   RuntimeInfo              `json:"runtime"`
	Services  map[string]ServiceHealth `json:"services"`
}

// RuntimeInfo carries process-level diagnostics.
type RuntimeInfo struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	CPUs       int    `json:"cpus"`
	AllocMB    uint64 `json:"alloc_mb"`
}

// HealthService answers the health, readiness and liveness probes.
type HealthService struct {
	store   *runstore.Store
	paths   *config.Paths
	hub     ClientCounter
	started time.Time
	logger  *slog.Logger
}

// NewHealthService creates the service. Store and hub may be nil; their
// checks then report disabled instead of failing.
func NewHealthService(store *runstore.Store, paths *config.Paths, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:   store,
		paths:   paths,
		hub:     hub,
		started: time.Now(),
		logger:  logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck runs every component check and aggregates them. The overall
// status is healthy only when no enabled component fails; a single failure
// degrades it, a database failure makes it unhealthy.
func (s *HealthService) HealthCheck(ctx context.Context) *HealthStatus {
	services := map[string]ServiceHealth{
		"database":   s.checkDatabase(ctx),
		"output_dir": s.checkOutputDir(),
		"websocket":  s.checkWebSocket(),
	}

	overall := HealthStatusHealthy
	for name, svc := range services {
		switch svc.Status {
		case HealthStatusUnhealthy:
			if name == "database" {
				overall = HealthStatusUnhealthy
			} else if overall != HealthStatusUnhealthy {
				overall = HealthStatusDegraded
			}
		case HealthStatusDegraded:
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Runtime: RuntimeInfo{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			CPUs:       runtime.NumCPU(),
			AllocMB:    mem.Alloc / (1 << 20),
		},
		Services: services,
	}
}

// ReadinessCheck reports whether the service can accept work: the store
// must answer and the output directory must be writable.
func (s *HealthService) ReadinessCheck(ctx context.Context) error {
	if db := s.checkDatabase(ctx); db.Status == HealthStatusUnhealthy {
		return fmt.Errorf("database not ready: %s", db.Message)
	}
	if out := s.checkOutputDir(); out.Status == HealthStatusUnhealthy {
		return fmt.Errorf("output directory not ready: %s", out.Message)
	}
	return nil
}

// LivenessCheck reports basic process liveness.
func (s *HealthService) LivenessCheck() map[string]any {
	return map[string]any{
		"status":     "alive",
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"timestamp":  time.Now().UTC(),
	}
}

// Version reports build identity.
func (s *HealthService) Version() map[string]string {
	info := contracts.GetVersionInfo()
	return map[string]string{
		"version":     info.Version,
		"api_version": info.APIVersion,
		"build_time":  info.BuildTime,
		"git_commit":  info.GitCommit,
		"go_version":  runtime.Version(),
	}
}

func (s *HealthService) checkDatabase(ctx context.Context) ServiceHealth {
	if s.store == nil {
		return ServiceHealth{Status: HealthStatusDisabled, Message: "run store not configured"}
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return ServiceHealth{Status: HealthStatusUnhealthy, Message: err.Error()}
	}
	return ServiceHealth{Status: HealthStatusHealthy, Message: fmt.Sprintf("%d runs recorded", count)}
}

func (s *HealthService) checkOutputDir() ServiceHealth {
	if s.paths == nil {
		return ServiceHealth{Status: HealthStatusDisabled, Message: "paths not configured"}
	}
	probe := filepath.Join(s.paths.OutputDir, ".health_probe")
	f, err := os.Create(probe)
	if err != nil {
		return ServiceHealth{Status: HealthStatusUnhealthy, Message: err.Error()}
	}
	f.Close()
	os.Remove(probe)
	return ServiceHealth{Status: HealthStatusHealthy}
}

func (s *HealthService) checkWebSocket() ServiceHealth {
	if s.hub == nil {
		return ServiceHealth{Status: HealthStatusDisabled, Message: "hub not configured"}
	}
	return ServiceHealth{
		Status:  HealthStatusHealthy,
		Message: fmt.Sprintf("%d clients connected", s.hub.ClientCount()),
	}
}
