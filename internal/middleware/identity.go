package middleware

// identity.go resolves the calling user.  Authentication is handled by
// an upstream gateway; this service trusts the X-User-ID header it
// forwards.  Handlers read the parsed ID from the "user_id" context
// key.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// HeaderUserID is the header the upstream gateway forwards the
// authenticated user's numeric ID in.
const HeaderUserID = "X-User-ID"

// Identity parses the X-User-ID header into the "user_id" context
// value.  Requests without the header pass through untouched; routes
// that need a user enforce its presence themselves.
func Identity() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := c.Request().Header.Get(HeaderUserID)
            if raw != "" {
                if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id > 0 {
                    c.Set("user_id", id)
                }
            }
            return next(c)
        }
    }
}
