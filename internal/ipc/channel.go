// Package ipc implements the local one-shot message channel between a
// secondary launch and the primary instance.
//
// A message is every byte a client writes before closing its side of the
// connection. There is no framing beyond that.
package ipc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"
)

const (
	DefaultMaxMessageBytes int64 = 64 << 10
	DefaultReadTimeout           = 5 * time.Second

	dialRetryInterval = 25 * time.Millisecond
)

var (
	// ErrSendFailed wraps every Send failure.
	ErrSendFailed = errors.New("send failed")
	// ErrConnectTimeout marks a Send that found no accepting listener before its deadline.
	ErrConnectTimeout = errors.New("connect timeout")
	// ErrListenerBindFailed reports that the server endpoint could not be (re)bound.
	ErrListenerBindFailed = errors.New("listener bind failed")
	// ErrNoListener is returned by transports when nothing is accepting on a name yet.
	ErrNoListener = errors.New("no listener")
)

// Transport binds and connects named local endpoints.
type Transport interface {
	Listen(name string) (net.Listener, error)
	Dial(ctx context.Context, name string) (net.Conn, error)
}

// Channel is one named local channel on a transport.
type Channel struct {
	Name      string
	Transport Transport
	Logger    *slog.Logger

	// MaxMessageBytes caps a payload in both directions. Zero selects
	// DefaultMaxMessageBytes.
	MaxMessageBytes int64
	// ReadTimeout bounds reading one message. Zero selects DefaultReadTimeout;
	// negative disables the deadline.
	ReadTimeout time.Duration
}

func (c Channel) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c Channel) maxMessageBytes() int64 {
	if c.MaxMessageBytes <= 0 {
		return DefaultMaxMessageBytes
	}
	return c.MaxMessageBytes
}

func (c Channel) readTimeout() time.Duration {
	if c.ReadTimeout == 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}
