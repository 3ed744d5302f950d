// Package services implements the business logic layer between the HTTP
// handlers and the domain packages.
//
// TransformService orchestrates a full run: parse the uploaded table,
// execute the standardize/rank pipeline, write the output files, record
// the run and broadcast progress snapshots. RunService answers run
// history queries, and HealthService backs the health probes.
//
// Services accept small interfaces for their outward dependencies (the
// broadcast hub) so tests can substitute captures, and propagate
// context.Context through every blocking call.
package services
