package models

import "errors"

// Error kinds surfaced by the state store, planner and runtime. Handlers map
// these to transport codes with errors.Is; everything else is Internal.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidSpec        = errors.New("invalid workflow spec")
	ErrInvalidGeometry    = errors.New("invalid tile geometry")
	ErrNotCancellable     = errors.New("only PENDING jobs can be cancelled")
	ErrNotFinished        = errors.New("result is only available after the job finishes")
	ErrSourceUnavailable  = errors.New("source unavailable")
	ErrAnalyzerFailure    = errors.New("analyzer failure")
	ErrPersistenceFailure = errors.New("persistence failure")
)
