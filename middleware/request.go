package middleware

import (
	tglink "github.com/MrEthical07/tglink"
	"github.com/labstack/echo/v4"
)

// RequestContext copies the client IP and the request id into the request
// context so the engine can throttle by IP and tag audit events.
//
// The IP is whatever the echo instance's IPExtractor returns; without one echo
// trusts client-supplied forwarding headers. It reads the request id from the
// X-Request-ID response header, so it must run after echo's RequestID
// middleware.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := tglink.WithClientIP(req.Context(), c.RealIP())
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				ctx = tglink.WithRequestID(ctx, id)
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
