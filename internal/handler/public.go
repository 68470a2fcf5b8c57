package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/seatwise/booking-engine/internal/engine"
    "github.com/seatwise/booking-engine/internal/query"
)

// PublicHandler serves the unauthenticated browse surface: upcoming
// screenings and live seat availability.
type PublicHandler struct {
    Query *query.Service
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(q *query.Service) *PublicHandler {
    if q == nil {
        panic("nil query service passed to NewPublicHandler")
    }
    return &PublicHandler{Query: q}
}

// UpcomingScreenings handles GET /v1/showings: screenings that have
// not ended yet, ordered by start time.
func (h *PublicHandler) UpcomingScreenings(c echo.Context) error {
    showings, err := h.Query.UpcomingScreenings(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"showings": showings})
}

// AvailableSeats handles GET /v1/showings/:id/seats: the seats still
// free for the showing.  The listing may be a few seconds stale when
// served from the cache.
func (h *PublicHandler) AvailableSeats(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, err.Error()))
    }
    seats, err := h.Query.AvailableSeats(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}
