package engine

import (
    "errors"
    "fmt"
)

// Kind classifies a booking failure so transports can map it to a
// status code without string matching.
type Kind string

const (
    KindInvalidInput     Kind = "INVALID_INPUT"
    KindNotFound         Kind = "NOT_FOUND"
    KindScheduleConflict Kind = "SCHEDULE_CONFLICT"
    KindSeatUnavailable  Kind = "SEAT_UNAVAILABLE"
    KindHoldExpired      Kind = "HOLD_EXPIRED"
    KindShowingClosed    Kind = "SHOWING_CLOSED"
)

// Error is a classified booking failure.  It wraps the underlying
// cause, so errors.Is still matches the repository and seat map
// sentinels it was built from.
type Error struct {
    Kind Kind
    msg  string
    err  error
}

func (e *Error) Error() string {
    if e.err != nil {
        return e.msg + ": " + e.err.Error()
    }
    return e.msg
}

// Unwrap exposes the wrapped cause for errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.err }

// KindOf extracts the Kind of a failure produced by the engine.  It
// returns false for errors that carry no classification.
func KindOf(err error) (Kind, bool) {
    var e *Error
    if errors.As(err, &e) {
        return e.Kind, true
    }
    return "", false
}

func failf(kind Kind, cause error, format string, args ...interface{}) error {
    return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: cause}
}
