package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/seatwise/booking-engine/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers the health endpoints on the provided Echo
// instance: liveness for process supervision and readiness gated on
// the booking database.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
    e.GET("/healthz", h.Live)
    e.GET("/readyz", h.Ready)
}

// RegisterPublic registers the unauthenticated browse endpoints:
// upcoming screenings and per-showing seat availability.  These routes
// apply no identity requirement so that guests can browse before
// booking.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
    e.GET("/v1/showings", p.UpcomingScreenings)
    e.GET("/v1/showings/:id/seats", p.AvailableSeats)
}

// RegisterBooking registers the booking lifecycle endpoints under /v1.
// The identity middleware is applied globally; the handlers themselves
// reject requests without a resolved user.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler) {
    g := e.Group("/v1")
    g.POST("/bookings", b.RequestBooking)
    g.GET("/bookings/:id", b.GetBooking)
    g.POST("/bookings/:id/confirm", b.ConfirmBooking)
    g.DELETE("/bookings/:id", b.CancelBooking)
}

// RegisterAdmin registers the back-office setup endpoints under
// /v1/admin: showrooms, seat types, seat layouts, showing schedules
// and ledger history.  These routes are expected to be reachable only
// from the internal network; the service itself applies no role
// checks.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler) {
    g := e.Group("/v1/admin")
    g.POST("/showrooms", a.CreateShowroom)
    g.GET("/showrooms", a.ListShowrooms)
    g.POST("/showrooms/:id/seats", a.AddSeats)
    g.POST("/seat-types", a.CreateSeatType)
    g.POST("/showings", a.CreateShowing)
    g.DELETE("/showings/:id", a.WithdrawShowing)
    g.GET("/showings/:id/history", a.ShowingHistory)
    g.GET("/users/:id/history", a.UserHistory)
}
