package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/domain"
	apperrors "github.com/hagatasdelus/Twitch-StreamNotification/internal/errors"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/metrics"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/platform/correlation"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/platform/retry"
)

// Token refresh failures back off exponentially before escalating fatal.
var defaultAuthRetryPolicy = retry.Policy{
	MaxAttempts:    6,
	InitialBackoff: 5 * time.Second,
	MaxBackoff:     5 * time.Minute,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Token refresh failed, backing off",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
	},
}

// MonitorConfig carries the monitor's own settings; transport and
// credential concerns stay with the injected StreamSource.
type MonitorConfig struct {
	BroadcasterLogin string
	PollInterval     time.Duration
	LivePollInterval time.Duration
}

// Monitor runs the poll loop for one broadcaster, tracks the last observed
// liveness, and dispatches a notification on each offline to live transition.
//
// The loop goroutine is the sole writer of the stream state; the mutex only
// guards concurrent reads from Snapshot.
type Monitor struct {
	cfg       MonitorConfig
	source    domain.StreamSource
	notifier  domain.Notifier
	clock     clockwork.Clock
	authRetry retry.Policy

	mu          sync.RWMutex
	broadcaster domain.Broadcaster
	state       domain.StreamState
}

// NewMonitor creates the monitor. Initialize must be called before Run.
func NewMonitor(cfg MonitorConfig, source domain.StreamSource, notifier domain.Notifier, clock clockwork.Clock) *Monitor {
	if cfg.LivePollInterval <= 0 {
		cfg.LivePollInterval = cfg.PollInterval
	}
	return &Monitor{
		cfg:       cfg,
		source:    source,
		notifier:  notifier,
		clock:     clock,
		authRetry: defaultAuthRetryPolicy,
	}
}

// Initialize resolves the configured broadcaster login and verifies the
// credentials by forcing an initial token acquisition through the source.
// A login that does not resolve to exactly one account is a configuration
// error; rejected credentials are an authentication error. Both are fatal.
func (m *Monitor) Initialize(ctx context.Context) error {
	broadcaster, err := m.source.ResolveBroadcaster(ctx, m.cfg.BroadcasterLogin)
	if err != nil {
		if errors.Is(err, domain.ErrBroadcasterNotFound) {
			return apperrors.ConfigurationError("broadcaster name does not resolve to an account").
				WithContext("broadcaster_name", m.cfg.BroadcasterLogin)
		}
		return err
	}

	m.mu.Lock()
	m.broadcaster = *broadcaster
	m.state = domain.StreamState{
		BroadcasterID: broadcaster.ID,
		IsLive:        false,
		LastCheckedAt: m.clock.Now(),
	}
	m.mu.Unlock()

	slog.InfoContext(ctx, "Broadcaster resolved",
		"login", broadcaster.Login,
		"broadcaster_id", broadcaster.ID,
	)

	m.sendNotification(ctx, titleStreamerFound, formatFoundMessage(broadcaster.Login))
	return nil
}

// Run executes the poll loop until ctx is cancelled or token refresh
// retries are exhausted. Transient fetch and notification failures are
// absorbed; only irrecoverable authentication failures escape.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		pollCtx := correlation.WithID(ctx, correlation.NewID())
		if err := m.poll(pollCtx); err != nil {
			return err
		}

		interval := m.cfg.PollInterval
		if m.Snapshot().IsLive {
			interval = m.cfg.LivePollInterval
		}

		select {
		case <-ctx.Done():
			return nil
		case <-m.clock.After(interval):
		}
	}
}

// Snapshot returns a copy of the current stream state for read-only
// consumers (debug server, logging).
func (m *Monitor) Snapshot() domain.StreamState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Broadcaster returns the resolved broadcaster account.
func (m *Monitor) Broadcaster() domain.Broadcaster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.broadcaster
}

func (m *Monitor) poll(ctx context.Context) error {
	info, err := m.source.GetLiveStream(ctx, m.state.BroadcasterID)
	if err != nil {
		if !apperrors.IsType(err, apperrors.TypeAuthentication) {
			slog.WarnContext(ctx, "Stream status fetch failed, keeping previous state", "error", err)
			metrics.PollsTotal.WithLabelValues("error").Inc()
			return nil
		}

		info, err = m.refetchWithAuthBackoff(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			// A transient failure during the backoff window degrades into
			// an ordinary absorbed fetch failure.
			var permanent *retry.PermanentError
			if errors.As(err, &permanent) && !apperrors.IsType(permanent.Err, apperrors.TypeAuthentication) {
				slog.WarnContext(ctx, "Stream status fetch failed, keeping previous state", "error", permanent.Err)
				metrics.PollsTotal.WithLabelValues("error").Inc()
				return nil
			}

			return apperrors.AuthenticationError("token refresh retries exhausted", err)
		}
	}

	m.applyTransition(ctx, info)
	return nil
}

// refetchWithAuthBackoff retries the fetch while it keeps failing on token
// acquisition. Any other error classification aborts the backoff loop.
func (m *Monitor) refetchWithAuthBackoff(ctx context.Context) (*domain.StreamInfo, error) {
	classify := func(err error) retry.Action {
		if apperrors.IsType(err, apperrors.TypeAuthentication) {
			return retry.Retry
		}
		return retry.Stop
	}

	return retry.Do(ctx, m.authRetry, classify, func() (*domain.StreamInfo, error) {
		return m.source.GetLiveStream(ctx, m.state.BroadcasterID)
	})
}

// applyTransition updates the stream state from the poll result and emits
// a notification on the offline to live edge. All other transitions are
// silent: repeated live polls never re-notify, and going offline only arms
// the next transition.
func (m *Monitor) applyTransition(ctx context.Context, info *domain.StreamInfo) {
	m.mu.Lock()
	wasLive := m.state.IsLive
	previousTitle := m.state.StreamTitle
	m.state.LastCheckedAt = m.clock.Now()
	if info != nil {
		m.state.IsLive = true
		m.state.StreamTitle = info.Title
	} else {
		m.state.IsLive = false
		m.state.StreamTitle = ""
	}
	broadcaster := m.broadcaster
	m.mu.Unlock()

	switch {
	case info != nil && !wasLive:
		metrics.PollsTotal.WithLabelValues("live").Inc()
		metrics.LiveStatus.Set(1)
		slog.InfoContext(ctx, "Broadcaster went live",
			"login", broadcaster.Login,
			"title", info.Title,
			"game", info.GameName,
		)
		m.sendNotification(ctx, titleStreamStarted,
			formatLiveMessage(broadcaster.Login, broadcaster.DisplayName, info.Title))

	case info != nil:
		metrics.PollsTotal.WithLabelValues("live").Inc()
		if info.Title != previousTitle {
			slog.DebugContext(ctx, "Stream title changed",
				"login", broadcaster.Login,
				"title", info.Title,
			)
		}

	case wasLive:
		metrics.PollsTotal.WithLabelValues("offline").Inc()
		metrics.LiveStatus.Set(0)
		slog.InfoContext(ctx, "Broadcaster went offline", "login", broadcaster.Login)

	default:
		metrics.PollsTotal.WithLabelValues("offline").Inc()
	}
}

// sendNotification delivers best-effort: failures are logged, never escalated.
func (m *Monitor) sendNotification(ctx context.Context, title, body string) {
	if err := m.notifier.Notify(ctx, title, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		slog.WarnContext(ctx, "Notification delivery failed", "title", title, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	slog.InfoContext(ctx, "Notification delivered", "title", title, "body", body)
}
