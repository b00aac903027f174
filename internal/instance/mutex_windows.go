//go:build windows

package instance

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

// MutexLocker creates named kernel mutexes in the Global namespace.
//
// CreateMutex both creates and reports a pre-existing object in one call, so
// the check and the acquire cannot interleave with another process. Handles of
// won mutexes stay open until exit; the mutex is never waited on or released.
type MutexLocker struct {
	mu   sync.Mutex
	held []windows.Handle
}

func (l *MutexLocker) TryLock(name string) (bool, error) {
	objectName, err := windows.UTF16PtrFromString(`Global\` + name)
	if err != nil {
		return false, fmt.Errorf("%w: invalid mutex name %q: %w", ErrResourceUnavailable, name, err)
	}

	h, err := windows.CreateMutex(nil, true, objectName)
	if err != nil {
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			if h != 0 {
				_ = windows.CloseHandle(h)
			}
			return false, nil
		}
		return false, fmt.Errorf("%w: create mutex %s: %w", ErrResourceUnavailable, name, err)
	}

	l.mu.Lock()
	l.held = append(l.held, h)
	l.mu.Unlock()
	return true, nil
}

// Held opens the mutex without ownership. The object only exists while some
// process keeps a handle, so a successful open means a primary is alive.
func (l *MutexLocker) Held(name string) (bool, error) {
	objectName, err := windows.UTF16PtrFromString(`Global\` + name)
	if err != nil {
		return false, fmt.Errorf("%w: invalid mutex name %q: %w", ErrResourceUnavailable, name, err)
	}

	h, err := windows.OpenMutex(windows.SYNCHRONIZE, false, objectName)
	if err != nil {
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
			return false, nil
		}
		return false, fmt.Errorf("%w: open mutex %s: %w", ErrResourceUnavailable, name, err)
	}
	_ = windows.CloseHandle(h)
	return true, nil
}
