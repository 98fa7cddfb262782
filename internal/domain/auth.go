package domain

import (
	"context"
	"time"
)

// RefreshSafetyMargin is how long before expiry a token is considered stale.
const RefreshSafetyMargin = 60 * time.Second

// AuthToken is a transient app access token obtained via client credentials.
// It is replaced wholesale on refresh; the old value is discarded.
type AuthToken struct {
	Value     string
	ExpiresAt time.Time
}

// NeedsRefresh reports whether the token is expired or inside the
// refresh safety margin at the given instant.
func (t AuthToken) NeedsRefresh(now time.Time) bool {
	return !now.Add(RefreshSafetyMargin).Before(t.ExpiresAt)
}

// TokenSource supplies a valid app access token, refreshing it as needed.
type TokenSource interface {
	Token(ctx context.Context) (AuthToken, error)
}
