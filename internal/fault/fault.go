// Package fault defines the error kinds shared across the store, transport and gateway.
package fault

import "errors"

var (
	// ErrNotFound: a referenced chat does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: a request parameter failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConnection: transport-level failure (dial, abrupt close, read error).
	ErrConnection = errors.New("connection error")
	// ErrTimeout: the heartbeat watchdog expired.
	ErrTimeout = errors.New("heartbeat timeout")
	// ErrMalformed: an inbound wire frame could not be decoded.
	ErrMalformed = errors.New("malformed event")
)
