// Package notify delivers native desktop notifications.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/hagatasdelus/Twitch-StreamNotification/internal/domain"
)

type runFunc func(ctx context.Context, name string, args ...string) error

// CommandNotifier shells out to the platform notification command:
// osascript on darwin, notify-send elsewhere. Delivery is best-effort;
// errors are returned for the caller to log.
type CommandNotifier struct {
	goos string
	run  runFunc
}

var _ domain.Notifier = (*CommandNotifier)(nil)

// NewCommandNotifier creates a notifier for the current platform.
func NewCommandNotifier() *CommandNotifier {
	return &CommandNotifier{
		goos: runtime.GOOS,
		run:  runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Notify displays a desktop notification with the given title and body.
func (n *CommandNotifier) Notify(ctx context.Context, title, body string) error {
	var name string
	var args []string

	switch n.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptString(body), appleScriptString(title))
		name = "/usr/bin/osascript"
		args = []string{"-e", script}
	default:
		name = "notify-send"
		args = []string{title, body}
	}

	if err := n.run(ctx, name, args...); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
