package domain

import (
	"context"
	"time"
)

// Broadcaster identifies the monitored Twitch account.
type Broadcaster struct {
	ID          string
	Login       string
	DisplayName string
}

// StreamInfo is the projection of an active Helix stream record.
type StreamInfo struct {
	Title     string
	GameName  string
	StartedAt time.Time
}

// StreamState is the last-observed liveness of the monitored broadcaster.
// StreamTitle is non-empty if and only if IsLive is true. It is owned and
// mutated exclusively by the monitor loop.
type StreamState struct {
	BroadcasterID string
	IsLive        bool
	StreamTitle   string
	LastCheckedAt time.Time
}

// StreamSource resolves broadcasters and fetches live stream records.
// Implementations own token lifecycle and API transport details.
type StreamSource interface {
	// ResolveBroadcaster resolves a login name to a broadcaster account.
	// Returns ErrBroadcasterNotFound when the login does not resolve to
	// exactly one account.
	ResolveBroadcaster(ctx context.Context, login string) (*Broadcaster, error)

	// GetLiveStream returns the active stream record for the broadcaster,
	// or nil when the broadcaster is offline.
	GetLiveStream(ctx context.Context, broadcasterID string) (*StreamInfo, error)
}
