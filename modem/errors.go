package modem

import "errors"

var (
	// ErrNoDialer is returned when a Config is built without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotAttached is returned by link operations attempted before the
	// Initializer has opened a transport.
	ErrNotAttached = errors.New("modem link not attached")

	// ErrAlreadyClosed is returned when Close is called on a Link that has
	// already been closed.
	ErrAlreadyClosed = errors.New("modem link already closed")

	// ErrNotAcknowledged is reported by the Initializer when a bring-up
	// command that must answer OK did not within its response window.
	//
	// The bring-up sequence restarts from its first step; callers should
	// back off before invoking it again.
	ErrNotAcknowledged = errors.New("command not acknowledged")

	// ErrLineTooLong is returned when an unterminated modem line exceeds the
	// line assembler's capacity. The partial line is discarded.
	ErrLineTooLong = errors.New("response line too long")
)
