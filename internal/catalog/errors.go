package catalog

import "errors"

// ErrInvalidInput is returned for malformed or inconsistent requests:
// an empty name, a non-positive price, an end time before the start,
// or a seat that does not belong to the showing's showroom.  Callers
// should not retry without changing the input.
var ErrInvalidInput = errors.New("invalid input")

// ErrScheduleConflict is returned when a new showing would overlap an
// existing screening showing in the same showroom.
var ErrScheduleConflict = errors.New("schedule conflict")
