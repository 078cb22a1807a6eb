package dashboard

import "errors"

var (
	// ErrAlreadyRunning is returned when starting a running hub
	ErrAlreadyRunning = errors.New("hub is already running")
	// ErrInvalidInterval indicates a non-positive report interval
	ErrInvalidInterval = errors.New("report interval must be positive")
)
