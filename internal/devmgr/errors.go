package devmgr

import "errors"

// Sentinel errors returned by Manager operations.
var (
	// ErrAlreadyRunning is returned when starting a process whose
	// recorded PID is still alive.
	ErrAlreadyRunning = errors.New("process already running")

	// ErrNotRunning is returned when stopping a process with no live
	// record.
	ErrNotRunning = errors.New("process not running")
)
