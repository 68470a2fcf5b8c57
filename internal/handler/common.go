package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/seatwise/booking-engine/internal/catalog"
    "github.com/seatwise/booking-engine/internal/engine"
    "github.com/seatwise/booking-engine/internal/repository"
)

// getUserID extracts the user_id the identity middleware parsed from
// the X-User-ID header.
func getUserID(c echo.Context) (uint64, error) {
    if v, ok := c.Get("user_id").(uint64); ok && v > 0 {
        return v, nil
    }
    return 0, errors.New("missing user identity")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid " + name)
    }
    return id, nil
}

// errorBody is the JSON error payload: a machine-readable kind plus a
// human-readable message.
func errorBody(kind engine.Kind, msg string) echo.Map {
    return echo.Map{"error": echo.Map{"kind": string(kind), "message": msg}}
}

// respondError maps a booking failure to an HTTP response.  Engine
// kinds map directly; bare catalog and repository sentinels that never
// passed through the engine are classified here the same way.
func respondError(c echo.Context, err error) error {
    kind, ok := engine.KindOf(err)
    if !ok {
        switch {
        case errors.Is(err, catalog.ErrInvalidInput):
            kind = engine.KindInvalidInput
        case errors.Is(err, catalog.ErrScheduleConflict):
            kind = engine.KindScheduleConflict
        case errors.Is(err, repository.ErrShowroomNotFound),
            errors.Is(err, repository.ErrSeatNotFound),
            errors.Is(err, repository.ErrSeatTypeNotFound),
            errors.Is(err, repository.ErrShowingNotFound),
            errors.Is(err, repository.ErrBookingNotFound):
            kind = engine.KindNotFound
        default:
            return c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
        }
    }
    return c.JSON(statusFor(kind), errorBody(kind, err.Error()))
}

// statusFor picks the HTTP status for a failure kind.
func statusFor(kind engine.Kind) int {
    switch kind {
    case engine.KindInvalidInput:
        return http.StatusBadRequest
    case engine.KindNotFound:
        return http.StatusNotFound
    case engine.KindScheduleConflict, engine.KindSeatUnavailable:
        return http.StatusConflict
    case engine.KindHoldExpired:
        return http.StatusGone
    case engine.KindShowingClosed:
        return http.StatusUnprocessableEntity
    }
    return http.StatusInternalServerError
}
