package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"betascale/internal/config"
	"betascale/internal/dataprocessing"
	apierrors "betascale/internal/errors"
	"betascale/internal/exporter"
	"betascale/internal/infrastructure"
	customMiddleware "betascale/internal/middleware"
	"betascale/internal/runstore"
	"betascale/internal/services"
	handlers "betascale/internal/transport/http"
	ws "betascale/internal/websocket"
	"betascale/pkg/contracts"
)

// Application wires configuration, infrastructure, services and the HTTP
// surface together, and owns their lifecycle.
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	OTelProviders *infrastructure.OTelProviders
	Store         *runstore.Store
	Hub           *ws.Hub

	TransformService *services.TransformService
	RunService       *services.RunService
	HealthService    *services.HealthService

	otelMiddleware *customMiddleware.OTelMiddleware
}

// New builds a fully wired application from configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
	)

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize OpenTelemetry: %w", err)
	}

	store, err := runstore.Open(context.Background(), paths.DatabaseFile, logger)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Store:         store,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices constructs the service layer. The OTel middleware is
// built first so the hub and the transform service record onto the same
// instruments the HTTP layer uses.
func (a *Application) initializeServices() error {
	otelMW, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("create OTel middleware: %w", err)
	}
	a.otelMiddleware = otelMW
	metrics := otelMW.RunMetrics()

	a.Hub = ws.NewHub(a.Logger, metrics)

	a.TransformService, err = services.NewTransformService(services.TransformDeps{
		Reader:   dataprocessing.NewReader(a.Logger),
		Writer:   exporter.NewResultWriter(a.Logger),
		Store:    a.Store,
		Hub:      a.Hub,
		Metrics:  metrics,
		Paths:    a.Paths,
		Pipeline: a.Config.Pipeline,
		Logger:   a.Logger,
	})
	if err != nil {
		return fmt.Errorf("create transform service: %w", err)
	}

	a.RunService = services.NewRunService(a.Store, a.Logger)
	a.HealthService = services.NewHealthService(a.Store, a.Paths, a.Hub, a.Logger)

	return nil
}

// setupRouter assembles the chi router. The WebSocket route stays outside
// the main middleware group: upgrades must not pass through wrapped
// response writers.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := handlers.NewWebSocketHandler(a.Hub, a.Config.Security.AllowedOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(a.otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				ExposedHeaders: []string{
					"X-Run-ID", "X-Rows", "X-Factors",
					"X-Population-Size", "X-Undefined-Cells", "X-Degenerate-Factors",
					"Content-Disposition",
				},
				Logger: a.Logger,
			}))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrapes stay outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes registers the /api surface.
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())

			runsHandler := handlers.NewRunsHandler(a.RunService, a.Logger, errorHandler)
			r.Mount("/runs", runsHandler.Routes())
		})

		// Uploads get the pipeline timeout and the upload guards.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Pipeline.RunTimeout, a.Logger))
			r.Use(customMiddleware.MaxUploadSize(a.Config.Pipeline.MaxUploadBytes))
			r.Use(customMiddleware.ContentTypeValidator("multipart/form-data"))

			transformHandler := handlers.NewTransformHandler(
				a.TransformService,
				validation,
				a.Config.Pipeline.DefaultSheet,
				a.Logger,
				errorHandler,
			)
			r.Mount("/transform", transformHandler.Routes())
		})
	})
}

// createServer builds the HTTP server around the router.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the hub and the HTTP server. A server failure cancels
// the supplied context so the caller can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Hub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.HealthService.ReadinessCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "startup readiness warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.String("output_dir", a.Paths.OutputDir),
		slog.String("database", a.Paths.DatabaseFile),
	)
	return nil
}

// Stop shuts the application down gracefully: drain the server, stop the
// hub, close the store, flush telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.Hub.Stop()

	if err := a.Store.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "error closing run store", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run starts the application and blocks until an interrupt arrives.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
