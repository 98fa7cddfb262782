package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	apperrors "github.com/hagatasdelus/Twitch-StreamNotification/internal/errors"
)

// Broadcaster logins are alphanumeric plus underscore.
var loginPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type Config struct {
	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	BroadcasterName    string `env:"BROADCASTER_NAME"`

	// PollInterval is the wait between status checks while offline.
	// LivePollInterval applies while the broadcaster is live; it defaults
	// to PollInterval when unset.
	PollInterval     time.Duration `env:"POLL_INTERVAL" default:"60s"`
	LivePollInterval time.Duration `env:"LIVE_POLL_INTERVAL"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" default:"10s"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// DebugAddr enables the debug HTTP server (/healthz, /metrics) when set.
	DebugAddr string `env:"DEBUG_ADDR"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, apperrors.ConfigurationError(fmt.Sprintf("failed to load environment variables: %v", err))
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	if cfg.LivePollInterval == 0 {
		cfg.LivePollInterval = cfg.PollInterval
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"TWITCH_CLIENT_ID":     cfg.TwitchClientID,
		"TWITCH_CLIENT_SECRET": cfg.TwitchClientSecret,
		"BROADCASTER_NAME":     cfg.BroadcasterName,
	}
	for name, value := range required {
		if value == "" {
			return apperrors.ConfigurationError(fmt.Sprintf("%s is required", name))
		}
	}

	if !loginPattern.MatchString(cfg.BroadcasterName) {
		return apperrors.ConfigurationError("BROADCASTER_NAME must be alphanumeric").
			WithContext("broadcaster_name", cfg.BroadcasterName)
	}

	if cfg.PollInterval <= 0 {
		return apperrors.ConfigurationError("POLL_INTERVAL must be positive")
	}
	if cfg.LivePollInterval < 0 {
		return apperrors.ConfigurationError("LIVE_POLL_INTERVAL must be positive")
	}
	if cfg.HTTPTimeout <= 0 {
		return apperrors.ConfigurationError("HTTP_TIMEOUT must be positive")
	}

	return nil
}
