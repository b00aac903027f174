package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Send delivers payload to the primary listening on the channel.
//
// It makes one connection attempt bounded by timeout. While no listener is
// accepting, the attempt keeps waiting for one until the deadline, the same
// way a platform connect-with-timeout does. Payloads over MaxMessageBytes are
// refused before dialing, since the server would drop them. All failures wrap
// ErrSendFailed.
func (c Channel) Send(ctx context.Context, payload string, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrSendFailed)
	}
	if limit := c.maxMessageBytes(); int64(len(payload)) > limit {
		return fmt.Errorf("%w: payload is %d bytes, limit is %d", ErrSendFailed, len(payload), limit)
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dial(sendCtx)
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline, _ := sendCtx.Deadline()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrSendFailed, err)
	}

	if _, err := io.WriteString(conn, payload); err != nil {
		return fmt.Errorf("%w: write payload: %w", ErrSendFailed, err)
	}

	// Half-close so the server's read-to-end completes even before Close.
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return fmt.Errorf("%w: close write: %w", ErrSendFailed, err)
		}
	}

	if err := conn.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrSendFailed, err)
	}
	return nil
}

func (c Channel) dial(ctx context.Context) (net.Conn, error) {
	for {
		conn, err := c.Transport.Dial(ctx, c.Name)
		if err == nil {
			return conn, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %s: %w", ErrSendFailed, ErrConnectTimeout, c.Name, err)
		}
		if !errors.Is(err, ErrNoListener) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: connect %s: %w", ErrSendFailed, c.Name, err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w: %s: %w", ErrSendFailed, ErrConnectTimeout, c.Name, err)
			}
			return nil, fmt.Errorf("%w: connect %s: %w", ErrSendFailed, c.Name, ctx.Err())
		case <-time.After(dialRetryInterval):
		}
	}
}
