package domain

import "errors"

// Sentinel errors for the repository ports and orchestrator inputs.
// Callers check these with errors.Is; transports map them to stable
// error codes in the response envelope.
var (
	// ErrContractNotFound is returned when a contract id has no row.
	ErrContractNotFound = errors.New("contract not found")

	// ErrScoreNotFound is returned when a contract has no persisted score.
	ErrScoreNotFound = errors.New("risk score not found")

	// ErrScanNotFound is returned when a scan id has no row.
	ErrScanNotFound = errors.New("scan not found")

	// ErrValidation is returned for invalid orchestrator or scan inputs.
	// No state is mutated when a validation error is returned.
	ErrValidation = errors.New("validation failed")

	// ErrCancelled is returned when an analysis or scan was abandoned via
	// its context before any state was persisted.
	ErrCancelled = errors.New("operation cancelled")
)
