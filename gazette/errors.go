package gazette

import "errors"

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("gazette: not found")

// ErrValidation is returned when input fails validation. Validation failures
// are reported synchronously to the producer and never enter the async
// enrichment pipeline.
var ErrValidation = errors.New("gazette: invalid input")

// ErrDuplicateGUID is returned when a record with the same guid already exists.
var ErrDuplicateGUID = errors.New("gazette: record with this guid already exists")
