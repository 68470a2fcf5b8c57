package handler

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// HealthHandler answers the liveness and readiness checks load
// balancers point at the service.
type HealthHandler struct {
    DB *sql.DB
}

// NewHealthHandler returns a HealthHandler over the booking database.
func NewHealthHandler(db *sql.DB) *HealthHandler {
    if db == nil {
        panic("handler: nil db")
    }
    return &HealthHandler{DB: db}
}

// Live reports that the process is up.
func (h *HealthHandler) Live(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports whether the service can actually take bookings, which
// means the ledger database has to answer.  The seat map and the
// broker degrade gracefully; the database does not.
func (h *HealthHandler) Ready(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()
    if err := h.DB.PingContext(ctx); err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "reason": "database unreachable"})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
