package session

import "errors"

// Domain errors for session transitions.
var (
	ErrInvalidTransition = errors.New("session: invalid state transition")
)
