package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/refinery/internal/platform/db"
	"github.com/ehr/refinery/internal/platform/middleware"
)

// Options configures NewServer.
type Options struct {
	Logger zerolog.Logger
	DB     db.Pinger
	Runs   Runner
	// AdminSecret, when set, guards POST /runs with an HS256 bearer token.
	AdminSecret []byte
	// ReadTimeout bounds the read endpoints. Zero means 10s.
	ReadTimeout time.Duration
}

func NewServer(o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(o.Logger))
	e.Use(middleware.Logger(o.Logger))
	e.Use(middleware.OpsHeaders())

	timeout := o.ReadTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	e.GET("/health", db.HealthHandler(o.DB), middleware.Deadline(timeout))

	var write []echo.MiddlewareFunc
	if len(o.AdminSecret) > 0 {
		write = append(write, middleware.AdminAuth(o.AdminSecret))
	}
	NewHandler(o.Runs).RegisterRoutes(e, write...)
	return e
}
