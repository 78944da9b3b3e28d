package history

import "errors"

// ErrRecordNotFound is returned when no record has the requested ID.
var ErrRecordNotFound = errors.New("history record not found")

// InterruptedError is recorded on jobs a previous process left unfinished.
const InterruptedError = "interrupted by server restart"
