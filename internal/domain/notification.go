package domain

import "context"

// Notifier delivers a human-visible desktop notification.
// Delivery is best-effort: callers log failures and never escalate them.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}
