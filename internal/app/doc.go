// Package app wires the application together: configuration, logging,
// OpenTelemetry, the run store, the WebSocket hub, the service layer and
// the HTTP router, plus the server lifecycle around them.
//
// # Initialization Flow
//
// New follows a fixed sequence:
//
//	1. Load configuration from defaults, config file and environment
//	2. Initialize the structured logger
//	3. Resolve and create filesystem paths
//	4. Initialize OpenTelemetry providers
//	5. Open the run history store
//	6. Construct services with their dependencies
//	7. Assemble the router and HTTP server
//
// # Usage
//
//	application, err := app.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until SIGINT or SIGTERM and then shuts down gracefully:
// in-flight requests drain, the hub disconnects its clients, the store
// closes and telemetry flushes.
package app
