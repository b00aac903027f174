//go:build windows

package instance

// NewPlatformLocker returns the process-lifetime locker for this OS.
// Named mutexes live in the kernel object namespace, so dir is unused.
func NewPlatformLocker(string) Locker {
	return &MutexLocker{}
}
