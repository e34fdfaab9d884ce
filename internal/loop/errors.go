package loop

import "errors"

// ErrClosed is returned when work is submitted after the loop has stopped.
var ErrClosed = errors.New("loop: closed")
