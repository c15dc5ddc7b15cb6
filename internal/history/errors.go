package history

import "errors"

var (
	// ErrSink wraps every failure to reach the primary store.
	ErrSink = errors.New("history: sink failed")

	// ErrStopped is returned by Start after Stop has been called.
	ErrStopped = errors.New("history: adapter stopped")
)
