package bridge

import "errors"

var (
	// ErrUnknownLanguage means no server is configured for the language.
	ErrUnknownLanguage = errors.New("no server configured for language")

	// ErrServerNotFound means the configured executable is not installed.
	ErrServerNotFound = errors.New("server executable not found")

	// ErrInstanceStopped means the instance has been torn down.
	ErrInstanceStopped = errors.New("instance stopped")

	// ErrSupervisorClosed means the supervisor has been shut down.
	ErrSupervisorClosed = errors.New("supervisor closed")
)
