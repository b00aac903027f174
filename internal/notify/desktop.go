package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

const desktopSummary = "Message received"

// Desktop posts freedesktop notifications over DBus via busctl.
type Desktop struct {
	AppName   string
	TimeoutMS int
	Logger    *slog.Logger

	// Busctl overrides the busctl binary, mainly for tests.
	Busctl string
}

func (d *Desktop) Present(ctx context.Context, text string) error {
	id, err := desktopNotify(ctx, d.busctl(), d.AppName, desktopSummary, text, d.TimeoutMS)
	if err != nil {
		return err
	}
	if d.Logger != nil {
		d.Logger.Debug("desktop notification posted", "notification_id", id)
	}
	return nil
}

func (d *Desktop) busctl() string {
	if d.Busctl != "" {
		return d.Busctl
	}
	return "busctl"
}

// desktopNotify sends a freedesktop notification and returns the ID assigned
// by the notification server.
func desktopNotify(ctx context.Context, busctl, appName, summary, body string, timeoutMS int) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		appName,
		"0", // replaces_id
		"",  // app_icon
		summary,
		body,
		"0", // actions array length
		"0", // hints map length
		strconv.Itoa(timeoutMS),
	}

	out, err := exec.CommandContext(ctx, busctl, args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return 0, fmt.Errorf("desktop notify failed: %w", err)
		}
		return 0, fmt.Errorf("desktop notify failed: %w (%s)", err, trimmed)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}
