package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/domain"
	"github.com/hagatasdelus/Twitch-StreamNotification/internal/metrics"
)

const defaultOAuthURL = "https://id.twitch.tv/oauth2/token"

// TokenError is returned when app token acquisition fails.
// Rejected indicates the platform refused the client credentials, as
// opposed to a transport failure.
type TokenError struct {
	Rejected bool
	Err      error
}

func (e *TokenError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("credentials rejected: %v", e.Err)
	}
	return fmt.Sprintf("token request failed: %v", e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// AppTokenSource obtains and caches an app access token via the
// client-credentials grant. The cached token is replaced when it is
// expired or within the refresh safety margin.
type AppTokenSource struct {
	clientID     string
	clientSecret string
	oauthURL     string // OAuth token endpoint URL (configurable for testing)
	httpClient   *http.Client
	clock        clockwork.Clock

	mu    sync.Mutex
	token domain.AuthToken
}

var _ domain.TokenSource = (*AppTokenSource)(nil)

// NewAppTokenSource creates a token source for the given client credentials.
func NewAppTokenSource(clientID, clientSecret string, timeout time.Duration, clock clockwork.Clock) *AppTokenSource {
	return &AppTokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		oauthURL:     defaultOAuthURL,
		httpClient:   &http.Client{Timeout: timeout},
		clock:        clock,
	}
}

// Token returns a valid app access token, requesting a fresh one when the
// cached token is missing, expired, or inside the refresh safety margin.
func (ts *AppTokenSource) Token(ctx context.Context) (domain.AuthToken, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.clock.Now()
	if ts.token.Value != "" && !ts.token.NeedsRefresh(now) {
		return ts.token, nil
	}

	token, err := ts.requestToken(ctx)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("error").Inc()
		return domain.AuthToken{}, err
	}

	metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	ts.token = token
	return token, nil
}

func (ts *AppTokenSource) requestToken(ctx context.Context) (domain.AuthToken, error) {
	data := url.Values{}
	data.Set("client_id", ts.clientID)
	data.Set("client_secret", ts.clientSecret)
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.oauthURL, strings.NewReader(data.Encode()))
	if err != nil {
		return domain.AuthToken{}, &TokenError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return domain.AuthToken{}, &TokenError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.AuthToken{}, &TokenError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// 400/401/403 mean the platform refused the credentials
		rejected := resp.StatusCode == http.StatusBadRequest ||
			resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden
		return domain.AuthToken{}, &TokenError{
			Rejected: rejected,
			Err:      fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return domain.AuthToken{}, &TokenError{Err: err}
	}

	return domain.AuthToken{
		Value:     result.AccessToken,
		ExpiresAt: ts.clock.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}
