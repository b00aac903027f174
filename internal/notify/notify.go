// Package notify presents messages received by the primary instance.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/rbright/handoff/internal/config"
)

// Presenter shows one received message to the user.
type Presenter interface {
	Present(ctx context.Context, text string) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(context.Context, string) error

func (f PresenterFunc) Present(ctx context.Context, text string) error {
	return f(ctx, text)
}

// New selects a presenter for cfg. Disabled notifications discard messages;
// the stdout backend writes one line per message.
func New(cfg config.NotifyConfig, stdout io.Writer, logger *slog.Logger) Presenter {
	if !cfg.Enable {
		return Discard{}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "desktop":
		return &Desktop{AppName: cfg.AppName, TimeoutMS: cfg.TimeoutMS, Logger: logger}
	case "command":
		return Command{Argv: cfg.Command.Argv}
	default:
		return &Writer{W: stdout}
	}
}

// Discard drops every message.
type Discard struct{}

func (Discard) Present(context.Context, string) error { return nil }

// Writer prints each message as one line.
type Writer struct {
	W  io.Writer
	mu sync.Mutex
}

func (w *Writer) Present(_ context.Context, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.W, "message: %s\n", text)
	return err
}

// Command runs Argv with the message in place of config.MessagePlaceholder,
// or as the final argument when Argv has no placeholder.
type Command struct {
	Argv []string
}

func (c Command) Present(ctx context.Context, text string) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("notify command argv cannot be empty")
	}

	argv := config.ExpandArgv(c.Argv, text)
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("notify command %q failed: %w", c.Argv[0], err)
		}
		return fmt.Errorf("notify command %q failed: %w (%s)", c.Argv[0], err, trimmed)
	}
	return nil
}
