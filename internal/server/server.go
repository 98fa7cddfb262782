// Package server exposes the optional debug HTTP surface: health and
// Prometheus metrics. It is read-only and disabled unless configured.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/domain"
)

// monitorView is the read-only view of the monitor the handlers consume.
type monitorView interface {
	Snapshot() domain.StreamState
	Broadcaster() domain.Broadcaster
}

type Server struct {
	echo    *echo.Echo
	addr    string
	monitor monitorView
}

func New(addr string, monitor monitorView) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		addr:    addr,
		monitor: monitor,
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
