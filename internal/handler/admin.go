package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/seatwise/booking-engine/internal/catalog"
    "github.com/seatwise/booking-engine/internal/engine"
    "github.com/seatwise/booking-engine/internal/query"
)

// AdminHandler exposes the administrative setup surface: showrooms,
// seat types, seat layouts, showing schedules and ledger history.
// Authorization is an upstream concern; these routes are expected to
// be reachable only from the back office.
type AdminHandler struct {
    Catalog *catalog.Store
    Query   *query.Service
}

// NewAdminHandler constructs an AdminHandler.  Dependencies must be
// non-nil.
func NewAdminHandler(cat *catalog.Store, q *query.Service) *AdminHandler {
    if cat == nil || q == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Catalog: cat, Query: q}
}

// CreateShowroom handles POST /v1/admin/showrooms.
func (h *AdminHandler) CreateShowroom(c echo.Context) error {
    var body struct {
        Name string `json:"name"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid request body"))
    }
    room, err := h.Catalog.CreateShowroom(c.Request().Context(), body.Name)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, room)
}

// ListShowrooms handles GET /v1/admin/showrooms.
func (h *AdminHandler) ListShowrooms(c echo.Context) error {
    rooms, err := h.Catalog.ListShowrooms(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, rooms)
}

// CreateSeatType handles POST /v1/admin/seat-types.
func (h *AdminHandler) CreateSeatType(c echo.Context) error {
    var body struct {
        Label          string `json:"label"`
        PremiumPercent uint32 `json:"premium_percent"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid request body"))
    }
    st, err := h.Catalog.CreateSeatType(c.Request().Context(), body.Label, body.PremiumPercent)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, st)
}

// AddSeats handles POST /v1/admin/showrooms/:id/seats.  The body is a
// JSON object with a "seats" array of seat specs.  The layout can only
// be extended while the showroom hosts no showings.
func (h *AdminHandler) AddSeats(c echo.Context) error {
    showroomID, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, err.Error()))
    }
    var body struct {
        Seats []struct {
            SeatTypeID uint64 `json:"seat_type_id"`
            RowLabel   string `json:"row_label"`
            SeatNumber uint32 `json:"seat_number"`
        } `json:"seats"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid request body"))
    }
    specs := make([]catalog.SeatSpec, 0, len(body.Seats))
    for _, s := range body.Seats {
        specs = append(specs, catalog.SeatSpec{SeatTypeID: s.SeatTypeID, RowLabel: s.RowLabel, SeatNumber: s.SeatNumber})
    }
    seats, err := h.Catalog.AddSeats(c.Request().Context(), showroomID, specs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"seats": seats})
}

// CreateShowing handles POST /v1/admin/showings.  Times are RFC3339.
func (h *AdminHandler) CreateShowing(c echo.Context) error {
    var body struct {
        ShowroomID     uint64    `json:"showroom_id"`
        MovieTitle     string    `json:"movie_title"`
        StartsAt       time.Time `json:"starts_at"`
        EndsAt         time.Time `json:"ends_at"`
        BasePriceCents uint32    `json:"base_price_cents"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, "invalid request body"))
    }
    showing, err := h.Catalog.CreateShowing(c.Request().Context(), catalog.ShowingParams{
        ShowroomID:     body.ShowroomID,
        MovieTitle:     body.MovieTitle,
        StartsAt:       body.StartsAt,
        EndsAt:         body.EndsAt,
        BasePriceCents: body.BasePriceCents,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, showing)
}

// WithdrawShowing handles DELETE /v1/admin/showings/:id.  The showing
// stops screening; existing bookings stay in the ledger.
func (h *AdminHandler) WithdrawShowing(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, err.Error()))
    }
    if err := h.Catalog.WithdrawShowing(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ShowingHistory handles GET /v1/admin/showings/:id/history and
// returns the showing's ledger events oldest first.
func (h *AdminHandler) ShowingHistory(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, err.Error()))
    }
    events, err := h.Query.ShowingHistory(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// UserHistory handles GET /v1/admin/users/:id/history.
func (h *AdminHandler) UserHistory(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, errorBody(engine.KindInvalidInput, err.Error()))
    }
    events, err := h.Query.UserHistory(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}
