package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/seatwise/booking-engine/internal/engine"
)

// BookingHandler drives the booking lifecycle over HTTP.  All routes
// require the identity middleware to have resolved a user.
type BookingHandler struct {
    Engine *engine.Engine
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(eng *engine.Engine) *BookingHandler {
    if eng == nil {
        panic("nil engine passed to NewBookingHandler")
    }
    return &BookingHandler{Engine: eng}
}

// RequestBooking handles POST /v1/bookings.  The body names the
// showing and seat; an optional X-Request-ID header makes the call
// idempotent.  On success the seat is held for the configured TTL and
// a 201 with the booking receipt is returned.
func (h *BookingHandler) RequestBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, errorBody(engine.KindInvalidInput, "unauthorized"))
    }
    var body struct {
        ShowingID uint64 `json:"showing_id"`
        SeatID    uint64 `json:"seat_id"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid request body"))
    }
    receipt, err := h.Engine.RequestBooking(c.Request().Context(), engine.BookingRequest{
        ShowingID: body.ShowingID,
        SeatID:    body.SeatID,
        UserID:    userID,
        RequestID: c.Request().Header.Get("X-Request-ID"),
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, receipt)
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, errorBody(engine.KindInvalidInput, "unauthorized"))
    }
    bookingID := c.Param("id")
    if bookingID == "" {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid booking id"))
    }
    rec, err := h.Engine.ConfirmBooking(c.Request().Context(), bookingID, userID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, rec)
}

// CancelBooking handles DELETE /v1/bookings/:id.  Cancelling twice is
// a no-op and both calls return 204.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, errorBody(engine.KindInvalidInput, "unauthorized"))
    }
    bookingID := c.Param("id")
    if bookingID == "" {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid booking id"))
    }
    if err := h.Engine.CancelBooking(c.Request().Context(), bookingID, userID); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// GetBooking handles GET /v1/bookings/:id.  A booking is only visible
// to the user who holds it.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, errorBody(engine.KindInvalidInput, "unauthorized"))
    }
    bookingID := c.Param("id")
    if bookingID == "" {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid booking id"))
    }
    rec, err := h.Engine.GetBooking(c.Request().Context(), bookingID)
    if err != nil {
        return respondError(c, err)
    }
    if rec.UserID != userID {
        // Do not leak other users' bookings.
        return c.JSON(http.StatusNotFound, errorBody(engine.KindNotFound, "booking not found"))
    }
    return c.JSON(http.StatusOK, rec)
}
