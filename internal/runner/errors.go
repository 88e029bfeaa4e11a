package runner

import "errors"

// Sentinel errors returned by Runner operations.
var (
	// ErrRunInFlight is returned when Trigger is called while a run is
	// already executing. The request is dropped, never queued.
	ErrRunInFlight = errors.New("pipeline run already in flight")

	// ErrStopped is returned when Trigger is called after the session
	// has been stopped.
	ErrStopped = errors.New("pipeline stopped")
)
