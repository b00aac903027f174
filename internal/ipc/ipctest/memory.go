// Package ipctest provides an in-process channel transport for tests.
package ipctest

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rbright/handoff/internal/ipc"
)

// MemoryTransport binds channel names in a process-local table. Listeners
// accept one synchronous net.Pipe at a time, so a busy listener makes Dial
// wait the way a single-instance OS endpoint does.
type MemoryTransport struct {
	mu        sync.Mutex
	listeners map[string]*memoryListener
	binds     map[string]int

	// ListenErr, when set, fails every Listen call.
	ListenErr error
}

// NewMemoryTransport returns an empty transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		listeners: map[string]*memoryListener{},
		binds:     map[string]int{},
	}
}

// Bound reports whether name currently has a listener.
func (t *MemoryTransport) Bound(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.listeners[name]
	return ok
}

// Binds returns how many times name has been bound.
func (t *MemoryTransport) Binds(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.binds[name]
}

func (t *MemoryTransport) Listen(name string) (net.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ListenErr != nil {
		return nil, t.ListenErr
	}
	if _, exists := t.listeners[name]; exists {
		return nil, fmt.Errorf("memory channel %q already bound", name)
	}

	l := &memoryListener{
		name:  name,
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
	}
	l.release = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.listeners[name] == l {
			delete(t.listeners, name)
		}
	}
	t.listeners[name] = l
	t.binds[name]++
	return l, nil
}

func (t *MemoryTransport) Dial(ctx context.Context, name string) (net.Conn, error) {
	t.mu.Lock()
	l := t.listeners[name]
	t.mu.Unlock()

	if l == nil {
		return nil, fmt.Errorf("%w: memory channel %q", ipc.ErrNoListener, name)
	}

	server, client := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.done:
		_ = server.Close()
		_ = client.Close()
		return nil, fmt.Errorf("%w: memory channel %q closed", ipc.ErrNoListener, name)
	case <-ctx.Done():
		_ = server.Close()
		_ = client.Close()
		return nil, ctx.Err()
	}
}

type memoryListener struct {
	name    string
	conns   chan net.Conn
	done    chan struct{}
	once    sync.Once
	release func()
}

func (l *memoryListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *memoryListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.release()
	})
	return nil
}

func (l *memoryListener) Addr() net.Addr {
	return memoryAddr(l.name)
}

type memoryAddr string

func (a memoryAddr) Network() string { return "memory" }
func (a memoryAddr) String() string  { return string(a) }
