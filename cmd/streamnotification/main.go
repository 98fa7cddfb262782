package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/app"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/config"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/logging"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/notify"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/server"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/twitch"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/version"
)

const (
	initializeTimeout = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting stream notification monitor",
		"version", version.Get().Version,
		"broadcaster", cfg.BroadcasterName,
		"poll_interval", cfg.PollInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	client, err := twitch.NewClient(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.HTTPTimeout, clock)
	if err != nil {
		slog.Error("Failed to create twitch client", "error", err)
		os.Exit(1)
	}

	monitor := app.NewMonitor(app.MonitorConfig{
		BroadcasterLogin: cfg.BroadcasterName,
		PollInterval:     cfg.PollInterval,
		LivePollInterval: cfg.LivePollInterval,
	}, client, notify.NewCommandNotifier(), clock)

	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	if err := monitor.Initialize(initCtx); err != nil {
		cancel()
		slog.Error("Initialization failed", "error", err)
		os.Exit(1)
	}
	cancel()

	var debugSrv *server.Server
	if cfg.DebugAddr != "" {
		debugSrv = server.New(cfg.DebugAddr, monitor)
		go func() {
			slog.Info("Debug server listening", "addr", cfg.DebugAddr)
			if err := debugSrv.Start(); err != nil {
				slog.Error("Debug server failed", "error", err)
			}
		}()
	}

	runErr := monitor.Run(ctx)

	if debugSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Debug server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		slog.Error("Monitor terminated", "error", runErr)
		os.Exit(1)
	}

	slog.Info("Shutdown complete")
}
