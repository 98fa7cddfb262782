package twitch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"
	"golang.org/x/time/rate"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/domain"
	apperrors "github.com/hagatasdelus/Twitch-StreamNotification/internal/errors"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/metrics"
)

// Helix allows bursts but the steady poll loop needs at most a couple of
// requests per interval.
const (
	requestsPerSecond = 1
	requestBurst      = 3
)

// tokenSource is the interface consumed for app token acquisition.
type tokenSource interface {
	Token(ctx context.Context) (domain.AuthToken, error)
}

// Client wraps a Helix client for the two endpoints the monitor needs.
// The stream-info path carries a circuit breaker so a platform outage
// degrades into transient poll failures instead of request pile-ups.
type Client struct {
	mu      sync.Mutex
	client  *helix.Client
	tokens  tokenSource
	limiter *rate.Limiter
	breaker circuitbreaker.CircuitBreaker[any]
}

var _ domain.StreamSource = (*Client)(nil)

// NewClient creates a Client with app-level credentials.
func NewClient(clientID, clientSecret string, timeout time.Duration, clock clockwork.Clock) (*Client, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:   clientID,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	return newClient(client, NewAppTokenSource(clientID, clientSecret, timeout, clock)), nil
}

func newClient(client *helix.Client, tokens tokenSource) *Client {
	breaker := circuitbreaker.Builder[any]().
		WithFailureThreshold(3).
		WithDelay(2 * time.Minute).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "helix",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(e.NewState.String()).Inc()
		}).
		Build()

	return &Client{
		client:  client,
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		breaker: breaker,
	}
}

// ResolveBroadcaster resolves a login name to a broadcaster account.
func (c *Client) ResolveBroadcaster(ctx context.Context, login string) (*domain.Broadcaster, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.TransientError("rate limiter wait cancelled", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, apperrors.AuthenticationError("token acquisition failed", err)
	}

	c.mu.Lock()
	c.client.SetAppAccessToken(token.Value)
	resp, err := c.client.GetUsers(&helix.UsersParams{
		Logins: []string{login},
	})
	c.mu.Unlock()

	if err != nil {
		return nil, apperrors.TransientError("user lookup failed", err).WithContext("login", login)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperrors.AuthenticationError("user lookup rejected",
			fmt.Errorf("status %d: %s: %s", resp.StatusCode, resp.Error, resp.ErrorMessage))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.TransientError("user lookup failed",
			fmt.Errorf("status %d: %s: %s", resp.StatusCode, resp.Error, resp.ErrorMessage))
	}

	if len(resp.Data.Users) != 1 {
		return nil, domain.ErrBroadcasterNotFound
	}

	user := resp.Data.Users[0]
	return &domain.Broadcaster{
		ID:          user.ID,
		Login:       user.Login,
		DisplayName: user.DisplayName,
	}, nil
}

// GetLiveStream returns the active stream record for the broadcaster, or
// nil when the broadcaster is offline.
func (c *Client) GetLiveStream(ctx context.Context, broadcasterID string) (*domain.StreamInfo, error) {
	if !c.breaker.TryAcquirePermit() {
		return nil, apperrors.TransientError("stream lookup skipped", circuitbreaker.ErrOpen)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.breaker.RecordSuccess() // cancellation is not a platform failure
		return nil, apperrors.TransientError("rate limiter wait cancelled", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.breaker.RecordSuccess()
		return nil, apperrors.AuthenticationError("token acquisition failed", err)
	}

	start := time.Now()
	c.mu.Lock()
	c.client.SetAppAccessToken(token.Value)
	resp, err := c.client.GetStreams(&helix.StreamsParams{
		UserIDs: []string{broadcasterID},
	})
	c.mu.Unlock()
	metrics.PollDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.breaker.RecordError(err)
		return nil, apperrors.TransientError("stream lookup failed", err).
			WithContext("broadcaster_id", broadcasterID)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.breaker.RecordSuccess() // the platform answered; credentials are the problem
		return nil, apperrors.AuthenticationError("stream lookup rejected",
			fmt.Errorf("status %d: %s: %s", resp.StatusCode, resp.Error, resp.ErrorMessage))
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("status %d: %s: %s", resp.StatusCode, resp.Error, resp.ErrorMessage)
		c.breaker.RecordError(statusErr)
		return nil, apperrors.TransientError("stream lookup failed", statusErr)
	}

	c.breaker.RecordSuccess()

	if len(resp.Data.Streams) == 0 {
		return nil, nil
	}

	stream := resp.Data.Streams[0]
	return &domain.StreamInfo{
		Title:     stream.Title,
		GameName:  stream.GameName,
		StartedAt: stream.StartedAt,
	}, nil
}
