package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Serve accepts one client at a time on the channel and hands each complete
// message to onMessage, on the calling goroutine, until ctx is cancelled.
//
// The next accept only begins after onMessage returns. Cancellation returns
// nil. Bind failures are returned wrapped in ErrListenerBindFailed and are not
// retried here.
//
// One listener stays bound across clients and is only rebound after an accept
// failure. On unix the kernel backlog can therefore complete a client's
// connect, and its Send, before onMessage for the previous client returns.
// Named pipes get a fresh instance per accepted client, so there a connect
// only completes once Serve is accepting again.
func (c Channel) Serve(ctx context.Context, onMessage func(string)) error {
	if onMessage == nil {
		return errors.New("serve channel: onMessage is nil")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		listener, err := c.Transport.Listen(c.Name)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrListenerBindFailed, c.Name, err)
		}
		c.logger().Debug("channel bound", "channel", c.Name)

		done, err := c.serveListener(ctx, listener, onMessage)
		if done {
			return err
		}
	}
}

// serveListener runs the accept loop on one bound listener. It reports
// done=false when the listener broke after serving at least one client and
// should be rebound.
func (c Channel) serveListener(ctx context.Context, listener net.Listener, onMessage func(string)) (bool, error) {
	fresh := true
	for {
		conn, err := acceptContext(ctx, listener)
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			_ = listener.Close()
			if fresh {
				return true, fmt.Errorf("%w: accept on new listener %s: %w", ErrListenerBindFailed, c.Name, err)
			}
			c.logger().Warn("channel accept failed; rebinding", "channel", c.Name, "error", err.Error())
			return false, nil
		}
		fresh = false

		text, ok := c.receive(conn)
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			_ = listener.Close()
			return true, nil
		}
		onMessage(text)
	}
}

// acceptContext waits for one connection or cancellation. On cancellation the
// listener is closed, which also unlinks a unix socket path.
func acceptContext(ctx context.Context, listener net.Listener) (net.Conn, error) {
	type accepted struct {
		conn net.Conn
		err  error
	}

	result := make(chan accepted, 1)
	go func() {
		conn, err := listener.Accept()
		result <- accepted{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = listener.Close()
		r := <-result
		if r.conn != nil {
			_ = r.conn.Close()
		}
		return nil, ctx.Err()
	case r := <-result:
		return r.conn, r.err
	}
}

// receive reads one message to EOF and closes the connection. An empty
// message is still a message.
func (c Channel) receive(conn net.Conn) (string, bool) {
	defer conn.Close()

	if timeout := c.readTimeout(); timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	}

	limit := c.maxMessageBytes()
	data, err := io.ReadAll(io.LimitReader(conn, limit+1))
	if err != nil {
		c.logger().Warn("channel read failed", "channel", c.Name, "error", err.Error())
		return "", false
	}
	if int64(len(data)) > limit {
		// Send refuses oversized payloads, so only foreign writers get here.
		c.logger().Warn("channel message dropped", "channel", c.Name, "reason", "too large", "limit_bytes", limit)
		return "", false
	}
	return string(data), true
}
