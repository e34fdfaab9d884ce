package protocol

import "errors"

// Codec errors. Both are protocol errors: the server answers with
// SERVER_ERROR and closes the connection.
var (
	// ErrUnknownType is returned for a missing or unrecognised message type.
	ErrUnknownType = errors.New("protocol: unknown message type")

	// ErrMalformed is returned when a frame or its payload cannot be decoded.
	ErrMalformed = errors.New("protocol: malformed message")
)
