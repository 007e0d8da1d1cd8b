package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Deadline bounds the request context. A handler that gives up with
// context.DeadlineExceeded before writing anything is answered with 504.
func Deadline(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err == nil || c.Response().Committed || !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
		}
	}
}
