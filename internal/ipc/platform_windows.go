//go:build windows

package ipc

// NewPlatformTransport returns the channel transport for this OS. Named pipes
// have their own namespace, so dir is unused.
func NewPlatformTransport(string) Transport {
	return PipeTransport{}
}
