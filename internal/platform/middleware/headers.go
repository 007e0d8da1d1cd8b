package middleware

import (
	"github.com/labstack/echo/v4"
)

// opsHeaders are set on every response of the ops server. Run summaries
// carry source record ids, so nothing is cached.
var opsHeaders = [][2]string{
	{"Cache-Control", "no-store"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
}

// OpsHeaders sets opsHeaders before the handler runs so error responses
// carry them too.
func OpsHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range opsHeaders {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
