package instance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// FileLocker holds advisory flock(2) locks on <Dir>/<name>.lock.
//
// The lock file is never removed. Removing it would let a later launch lock a
// fresh inode while the primary still holds the old one.
type FileLocker struct {
	Dir string

	// createFlag replaces the first open's flags; zero means O_CREATE|O_RDONLY.
	createFlag int

	mu   sync.Mutex
	held []*flock.Flock
}

const lockFileMode os.FileMode = 0o666

// NewFileLocker returns a locker rooted at dir.
func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{Dir: dir}
}

// Path returns the lock file used for name.
func (l *FileLocker) Path(name string) string {
	return filepath.Join(l.Dir, name+".lock")
}

func (l *FileLocker) TryLock(name string) (bool, error) {
	if err := checkLockName(name); err != nil {
		return false, err
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return false, fmt.Errorf("%w: ensure lock dir: %w", ErrResourceUnavailable, err)
	}

	path := l.Path(name)
	fl, locked, err := l.tryLockFile(path)
	if err != nil {
		return false, fmt.Errorf("%w: lock %s: %w", ErrResourceUnavailable, path, err)
	}
	if !locked {
		return false, nil
	}

	// The umask narrows the create mode; later launches may run as other users.
	_ = os.Chmod(path, lockFileMode)

	l.mu.Lock()
	l.held = append(l.held, fl)
	l.mu.Unlock()
	return true, nil
}

// Held takes and drops a shared lock on a fresh descriptor without creating
// the file. A launch whose TryLock lands in that instant sees a secondary role.
func (l *FileLocker) Held(name string) (bool, error) {
	if err := checkLockName(name); err != nil {
		return false, err
	}

	path := l.Path(name)
	fl := flock.New(path, flock.SetFlag(os.O_RDONLY))
	free, err := fl.TryRLock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: inspect %s: %w", ErrResourceUnavailable, path, err)
	}
	if free {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}

// tryLockFile opens path with O_CREAT and locks it. In a sticky shared
// directory with fs.protected_regular, O_CREAT on a file owned by another user
// fails even though the file exists, so an existing file is reopened without
// O_CREAT.
func (l *FileLocker) tryLockFile(path string) (*flock.Flock, bool, error) {
	createFlag := l.createFlag
	if createFlag == 0 {
		createFlag = os.O_CREATE | os.O_RDONLY
	}

	fl := flock.New(path, flock.SetFlag(createFlag), flock.SetPermissions(lockFileMode))
	locked, err := fl.TryLock()
	if err == nil || !(errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist)) {
		return fl, locked, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return fl, false, err
	}

	fl = flock.New(path, flock.SetFlag(os.O_RDONLY))
	locked, err = fl.TryLock()
	return fl, locked, err
}

func checkLockName(name string) error {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid lock name %q", ErrResourceUnavailable, name)
	}
	return nil
}
