//go:build !windows

package instance

// NewPlatformLocker returns the process-lifetime locker for this OS.
func NewPlatformLocker(dir string) Locker {
	return NewFileLocker(dir)
}
