package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runDeadline(t *testing.T, d time.Duration, h echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	return rec, Deadline(d)(h)(c)
}

func TestDeadline_SetsContextDeadline(t *testing.T) {
	rec, err := runDeadline(t, time.Second, func(c echo.Context) error {
		_, ok := c.Request().Context().Deadline()
		assert.True(t, ok)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeadline_AnswersGatewayTimeout(t *testing.T) {
	rec, err := runDeadline(t, 20*time.Millisecond, func(c echo.Context) error {
		<-c.Request().Context().Done()
		return fmt.Errorf("ping: %w", c.Request().Context().Err())
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"error":"request timed out"}`, rec.Body.String())
}

func TestDeadline_LeavesOtherErrors(t *testing.T) {
	_, err := runDeadline(t, time.Second, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "run in progress")
	})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestDeadline_KeepsCommittedResponse(t *testing.T) {
	rec, err := runDeadline(t, time.Second, func(c echo.Context) error {
		_ = c.NoContent(http.StatusServiceUnavailable)
		return context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
