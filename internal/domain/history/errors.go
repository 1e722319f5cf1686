package history

import "errors"

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("history record not found")
