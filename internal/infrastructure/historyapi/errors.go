package historyapi

import "errors"

var (
	// ErrDisabled is returned by New when no base URL is configured.
	ErrDisabled = errors.New("historyapi: no base URL configured")

	// ErrRequestFailed is returned when a request cannot be sent or its
	// response cannot be read.
	ErrRequestFailed = errors.New("historyapi: request failed")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("historyapi: unexpected status")

	// ErrInvalidRecord is returned for records that cannot be converted
	// to readings. Valid records in the same response are still returned.
	ErrInvalidRecord = errors.New("historyapi: invalid record")
)
