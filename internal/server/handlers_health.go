package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/version"
)

func (s *Server) handleHealth(c echo.Context) error {
	state := s.monitor.Snapshot()
	broadcaster := s.monitor.Broadcaster()

	return c.JSON(http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         version.Get(),
		"broadcaster":     broadcaster.Login,
		"is_live":         state.IsLive,
		"stream_title":    state.StreamTitle,
		"last_checked_at": state.LastCheckedAt,
	})
}
