package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/rbright/handoff/internal/config"
	"github.com/rbright/handoff/internal/fsm"
	"github.com/rbright/handoff/internal/ipc"
)

// runPrimary serves the channel until ctx is cancelled. Scheme registration
// runs alongside and never delays the first accept.
func (r Runner) runPrimary(ctx context.Context, cfg config.Config, initial []string, logger *slog.Logger) error {
	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Scheme.Enable {
		group.Go(func() error {
			if err := r.registerScheme(groupCtx, cfg, logger); err != nil {
				logger.Warn("scheme registration failed", "scheme", cfg.Scheme.Name, "error", err.Error())
			}
			return nil
		})
	}

	group.Go(func() error {
		onMessage := r.messageHandler(groupCtx, logger)
		for _, payload := range initial {
			onMessage(payload)
		}
		return r.superviseServe(groupCtx, cfg, onMessage, logger)
	})

	return group.Wait()
}

func (r Runner) messageHandler(ctx context.Context, logger *slog.Logger) func(string) {
	return func(text string) {
		logger.Info("message received", "bytes", len(text), "message", text)
		if err := r.Presenter.Present(ctx, text); err != nil {
			logger.Warn("present message failed", "error", err.Error())
		}
	}
}

// superviseServe reruns Serve after bind failures with exponential backoff.
// Any other error, or exhausting the retry budget, stops the primary.
func (r Runner) superviseServe(ctx context.Context, cfg config.Config, onMessage func(string), logger *slog.Logger) error {
	channel := r.channel(cfg, logger)
	lifecycle := newLifecycle(logger)

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Duration(cfg.Server.RebindInitialMS) * time.Millisecond
	expo.MaxInterval = time.Duration(cfg.Server.RebindMaxMS) * time.Millisecond
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(cfg.Server.RebindAttempts)), ctx)

	operation := func() error {
		lifecycle.apply(fsm.EventServe)
		started := time.Now()
		err := channel.Serve(ctx, onMessage)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ipc.ErrListenerBindFailed):
			lifecycle.apply(fsm.EventBindFailed)
			// A listener that stayed up longer than the backoff ceiling earns
			// a fresh retry budget.
			if time.Since(started) > expo.MaxInterval {
				policy.Reset()
			}
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notifyRetry := func(err error, wait time.Duration) {
		logger.Warn("channel rebind scheduled", "error", err.Error(), "wait_ms", wait.Milliseconds())
	}

	err := backoff.RetryNotify(operation, policy, notifyRetry)
	if ctx.Err() != nil || err == nil {
		lifecycle.apply(fsm.EventStop)
		return nil
	}
	lifecycle.apply(fsm.EventFail)
	return err
}

// lifecycle tracks the primary's serving state for logs.
type lifecycle struct {
	state  fsm.State
	logger *slog.Logger
}

func newLifecycle(logger *slog.Logger) *lifecycle {
	return &lifecycle{state: fsm.StateIdle, logger: logger}
}

func (l *lifecycle) apply(event fsm.Event) {
	next, err := fsm.Transition(l.state, event)
	if err != nil {
		l.logger.Warn("primary state transition rejected", "state", l.state, "event", event, "error", err.Error())
		return
	}
	l.logger.Debug("primary state", "from", l.state, "event", event, "to", next)
	l.state = next
}
