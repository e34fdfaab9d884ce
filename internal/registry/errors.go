package registry

import "errors"

// Domain errors for the registry package.
var (
	// ErrInvalidContext is returned when a registration context string is not recognised.
	ErrInvalidContext = errors.New("registry: invalid registration context")

	// ErrDuplicateBlock is returned when a snapshot lists the same block id twice.
	ErrDuplicateBlock = errors.New("registry: duplicate block in snapshot")

	// ErrDuplicateGroup is returned when a snapshot lists the same group id twice.
	ErrDuplicateGroup = errors.New("registry: duplicate group in snapshot")
)
