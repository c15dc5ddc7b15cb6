package codec

import "errors"

var (
	// ErrDecode is the parent of every decode failure in this package.
	ErrDecode = errors.New("codec: decode failed")

	// ErrInvalidNumber is returned when a numeric payload cannot be parsed.
	ErrInvalidNumber = decodeError("codec: invalid number")

	// ErrInvalidJSON is returned when a bundle payload is not a JSON object.
	ErrInvalidJSON = decodeError("codec: invalid JSON")

	// ErrUnknownToken is returned by strict decoders for unrecognised tokens.
	ErrUnknownToken = decodeError("codec: unknown token")

	// ErrUnknownTokenSet is returned when a token grammar name is not recognised.
	ErrUnknownTokenSet = errors.New("codec: unknown token set")
)

// kindError is a sentinel that also matches ErrDecode under errors.Is.
type kindError struct{ msg string }

func decodeError(msg string) error { return &kindError{msg: msg} }

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == ErrDecode }
