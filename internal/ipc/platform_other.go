//go:build !windows

package ipc

// NewPlatformTransport returns the channel transport for this OS. Sockets are
// created under dir.
func NewPlatformTransport(dir string) Transport {
	return SocketTransport{Dir: dir}
}
