package sim

import "errors"

var (
	// ErrMalformedSignal is returned for events missing a symbol, time or
	// usable price. It aborts the run that produced the event.
	ErrMalformedSignal = errors.New("malformed signal")

	// ErrInsufficientBalance marks an open that was skipped because its
	// notional exceeded the available balance. It is logged, not returned.
	ErrInsufficientBalance = errors.New("insufficient available balance")
)
