// Package api is the operations HTTP surface: health, the last run summary,
// and an endpoint to start a run.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/refinery/internal/pipeline"
)

// Runner is the part of pipeline.Service the handlers drive.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
	Start(ctx context.Context) error
	Running() bool
	Last() *pipeline.Summary
}

type Handler struct {
	runs Runner
}

func NewHandler(runs Runner) *Handler {
	return &Handler{runs: runs}
}

// RegisterRoutes mounts the run endpoints. Middleware in write guards the
// endpoint that starts runs.
func (h *Handler) RegisterRoutes(e *echo.Echo, write ...echo.MiddlewareFunc) {
	e.GET("/runs/last", h.LastRun)
	e.POST("/runs", h.StartRun, write...)
}

type lastRunResponse struct {
	Running bool              `json:"running"`
	Summary *pipeline.Summary `json:"summary,omitempty"`
}

func (h *Handler) LastRun(c echo.Context) error {
	last := h.runs.Last()
	if last == nil && !h.runs.Running() {
		return echo.NewHTTPError(http.StatusNotFound, "no run has finished yet")
	}
	return c.JSON(http.StatusOK, lastRunResponse{Running: h.runs.Running(), Summary: last})
}

// StartRun starts a run in the background and answers 202. With ?wait=true
// it blocks and answers with the run's summary.
func (h *Handler) StartRun(c echo.Context) error {
	wait := false
	if v := c.QueryParam("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wait must be a boolean")
		}
		wait = b
	}

	if !wait {
		if err := h.runs.Start(c.Request().Context()); err != nil {
			return runError(err)
		}
		return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
	}

	sum, err := h.runs.Run(c.Request().Context())
	if err != nil {
		if sum == nil {
			return runError(err)
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error(), "summary": sum})
	}
	return c.JSON(http.StatusOK, sum)
}

func runError(err error) error {
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
