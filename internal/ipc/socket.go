package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
)

// SocketMode is applied to bound sockets. Secondary launches may come from
// another user or session, so the channel is deliberately world read-write.
const SocketMode os.FileMode = 0o666

// SocketTransport maps channel names to unix domain sockets under Dir.
//
// A listener also holds an flock on "<socket>.lock" for as long as it is open.
// Liveness of a socket is read from that lock, never by connecting, because
// every accepted connection is a message.
type SocketTransport struct {
	Dir string
}

// Path returns the socket file for name.
func (t SocketTransport) Path(name string) string {
	return filepath.Join(t.Dir, name+".sock")
}

func (t SocketTransport) ownerPath(name string) string {
	return t.Path(name) + ".lock"
}

// Listen binds name. A socket file whose owner lock is free was left behind by
// a dead primary and is replaced; a held owner lock is a bind failure.
func (t SocketTransport) Listen(name string) (net.Listener, error) {
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure socket dir: %w", err)
	}

	path := t.Path(name)
	owner := flock.New(t.ownerPath(name), flock.SetPermissions(0o600))
	locked, err := owner.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock socket owner %s: %w", owner.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("socket %s is owned by a live listener", path)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = owner.Unlock()
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		_ = owner.Unlock()
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	if err := os.Chmod(path, SocketMode); err != nil {
		_ = listener.Close()
		_ = owner.Unlock()
		return nil, fmt.Errorf("chmod socket %s: %w", path, err)
	}
	return &socketListener{Listener: listener, owner: owner}, nil
}

// Dial connects to name. Missing, refusing, and backlogged sockets report
// ErrNoListener so callers can keep waiting until their deadline.
func (t SocketTransport) Dial(ctx context.Context, name string) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", t.Path(name))
	if err != nil {
		if isSocketMissing(err) || isConnectionRefused(err) || errors.Is(err, syscall.EAGAIN) {
			return nil, fmt.Errorf("%w: %w", ErrNoListener, err)
		}
		return nil, err
	}
	return conn, nil
}

// socketListener releases the owner lock after the socket is unlinked.
type socketListener struct {
	net.Listener
	owner *flock.Flock
	once  sync.Once
	err   error
}

func (l *socketListener) Close() error {
	l.once.Do(func() {
		l.err = l.Listener.Close()
		_ = l.owner.Unlock()
	})
	return l.err
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
