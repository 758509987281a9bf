package api

import (
	echo "github.com/labstack/echo/v5"
	"github.com/google/uuid"
)

const correlationIDHeader = "X-Correlation-Id"
const correlationIDContextKey = "correlation_id"

// requestCorrelationID stamps every request with a UUID, echoed back in the
// response header and attached to 50000 error logs (spec.md §7).
func requestCorrelationID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(correlationIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(correlationIDContextKey, id)
			c.Response().Header().Set(correlationIDHeader, id)
			return next(c)
		}
	}
}

func correlationID(c *echo.Context) string {
	if v, ok := c.Get(correlationIDContextKey).(string); ok {
		return v
	}
	return ""
}

// securityHeaders sets standard security response headers, matching the
// teacher's middleware.go.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}
