package app

import (
	"fmt"
	"strings"
)

// Notification titles.
const (
	titleStreamStarted = "Stream Started"
	titleStreamerFound = "Streamer Found"
)

// formatLiveMessage builds the live-transition notification body. The login
// is appended when it differs from the display name, so a viewer searching
// the login can still find the channel.
func formatLiveMessage(login, displayName, streamTitle string) string {
	suffix := fmt.Sprintf(" has started streaming: %s", streamTitle)
	if strings.EqualFold(login, displayName) {
		return displayName + suffix
	}
	return fmt.Sprintf("%s(%s)%s", displayName, login, suffix)
}

// formatFoundMessage builds the startup confirmation body.
func formatFoundMessage(login string) string {
	return fmt.Sprintf("%s found. You will be notified when the streaming starts.", login)
}
