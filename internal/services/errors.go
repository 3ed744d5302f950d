package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these onto
// RFC 7807 problem responses.
var (
	// ErrNoSource means a transform request arrived without an input stream.
	ErrNoSource = errors.New("no input source provided")

	// ErrOutputFileNotFound means the requested file is not among a run's
	// recorded outputs.
	ErrOutputFileNotFound = errors.New("output file not found for run")

	// ErrStoreUnavailable means run history was requested but the service
	// was built without a store.
	ErrStoreUnavailable = errors.New("run store not configured")
)
