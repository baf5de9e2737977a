package store

import "errors"

var (
	// ErrUnknownVersion is returned by Load when the record carries a
	// layout version this build cannot read. The in-memory configuration
	// keeps its defaults and the Store turns read-only: later changes are
	// kept in memory and never written over the record.
	ErrUnknownVersion = errors.New("unknown config record version")

	// ErrFieldTooLong is returned when a value does not fit its reserved
	// span together with its terminator.
	ErrFieldTooLong = errors.New("value exceeds reserved span")

	// ErrNoSuchNumber is returned for a recipient slot outside the record.
	ErrNoSuchNumber = errors.New("no such recipient slot")
)
