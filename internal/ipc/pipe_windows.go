//go:build windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

// pipeSecurityDescriptor grants SYSTEM and Administrators full control and
// Everyone read/write. Secondary launches can come from any local session.
const pipeSecurityDescriptor = "D:P(A;;GA;;;SY)(A;;GA;;;BA)(A;;GRGW;;;WD)"

const pipeBufferSize = 4096

// PipeTransport maps channel names to named pipes. go-winio creates a fresh
// pipe instance for every accepted client.
type PipeTransport struct{}

// PipePath returns the pipe path for name.
func PipePath(name string) string {
	return `\\.\pipe\` + name
}

func (PipeTransport) Listen(name string) (net.Listener, error) {
	listener, err := winio.ListenPipe(PipePath(name), &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
		InputBufferSize:    pipeBufferSize,
		OutputBufferSize:   pipeBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listen pipe %s: %w", PipePath(name), err)
	}
	return listener, nil
}

func (PipeTransport) Dial(ctx context.Context, name string) (net.Conn, error) {
	conn, err := winio.DialPipeContext(ctx, PipePath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, windows.ERROR_PIPE_BUSY) {
			return nil, fmt.Errorf("%w: %w", ErrNoListener, err)
		}
		return nil, err
	}
	return conn, nil
}
