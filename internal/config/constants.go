package config

import "time"

// Application constants - hardcoded values for the BetaScale system.
const (
	// Application Info
	AppName    = "BetaScale"
	AppVersion = "1.2.0"

	// Default locations, relative to the executable directory
	DefaultOutputDir    = "data/output"
	DefaultUploadDir    = "data/uploads"
	DefaultLogsDir      = "logs"
	DefaultDatabaseFile = "data/runs.db"

	// Pipeline defaults
	DefaultMaxConcurrency = 4
	DefaultRunTimeout     = 2 * time.Minute
	DefaultMaxUploadBytes = 32 << 20 // 32MB

	// Rate Limiting
	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogFile   = "logs/app.log"
)

// API endpoints.
const (
	APIBasePath       = "/api"
	TransformEndpoint = "/api/transform"
	PreviewEndpoint   = "/api/transform/preview"
	RunsEndpoint      = "/api/runs"
	HealthEndpoint    = "/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
