package protocol

import "errors"

var (
	// Transport: fatal to the connection.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds max size")
	ErrEmptyFrame    = errors.New("protocol: empty frame")

	// Protocol: the payload is not a JSON object with a string type.
	ErrMalformed = errors.New("protocol: malformed message")

	// Protocol: well-formed, but not a client message type we know.
	ErrUnknownType = errors.New("protocol: unknown message type")

	// Protocol: known type that fails schema validation.
	ErrInvalidMessage = errors.New("protocol: invalid message")
)

// IsTransportError reports whether err should tear the connection down
// without attempting any further reads.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrFrameTooLarge) || errors.Is(err, ErrEmptyFrame)
}
