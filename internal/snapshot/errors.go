package snapshot

import "errors"

// ErrCorrupt is returned when a stored snapshot cannot be decoded.
var ErrCorrupt = errors.New("snapshot: corrupt snapshot")
