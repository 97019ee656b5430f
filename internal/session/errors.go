package session

import "errors"

var (
	// ErrSessionClosed means the session has been torn down. Pending
	// requests are rejected with this error.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotReady means the handshake has not completed.
	ErrNotReady = errors.New("session not ready")

	// ErrAlreadyStarted means Start was called twice.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrDocumentNotOpen means the operation targets an unopened document.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrNotSupported means the server did not advertise the capability.
	ErrNotSupported = errors.New("capability not supported by server")
)
