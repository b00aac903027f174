// Package instance decides, once per process, whether this process is the
// primary instance of an application on the machine.
//
// Ownership is tied to process lifetime. There is no release call: the OS drops
// the lock when the owning process exits, so a crashed primary is recovered by
// the next launch instead of leaving a stuck lock behind.
package instance

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrResourceUnavailable reports that the named lock could not be created or opened.
	ErrResourceUnavailable = errors.New("instance lock unavailable")
	// ErrAlreadyAcquired reports a second Acquire on the same Gate.
	ErrAlreadyAcquired = errors.New("instance gate already acquired")
)

// Role is the outcome of a gate check.
type Role int

const (
	RoleSecondary Role = iota
	RolePrimary
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleSecondary:
		return "secondary"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Locker performs one atomic create-or-detect on a named, system-wide lock.
//
// TryLock returns true when the caller now owns the lock, false when another
// process already holds it. The implementation must keep an acquired lock
// alive until the process exits.
//
// Held reports whether some process currently owns the lock without taking
// it or creating it.
type Locker interface {
	TryLock(name string) (bool, error)
	Held(name string) (bool, error)
}

// Gate is the single startup check for an application identifier.
type Gate struct {
	locker Locker

	mu       sync.Mutex
	acquired bool
	role     Role
}

// NewGate returns a gate backed by locker.
func NewGate(locker Locker) *Gate {
	return &Gate{locker: locker}
}

// Acquire attempts to become the primary instance for appID.
func (g *Gate) Acquire(appID string) (Role, error) {
	name := strings.TrimSpace(appID)
	if name == "" {
		return RoleSecondary, fmt.Errorf("%w: application id is empty", ErrResourceUnavailable)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.acquired {
		return g.role, ErrAlreadyAcquired
	}

	owned, err := g.locker.TryLock(name)
	if err != nil {
		if errors.Is(err, ErrResourceUnavailable) {
			return RoleSecondary, err
		}
		return RoleSecondary, fmt.Errorf("%w: %s: %w", ErrResourceUnavailable, name, err)
	}

	g.acquired = true
	g.role = RoleSecondary
	if owned {
		g.role = RolePrimary
	}
	return g.role, nil
}

// PrimaryRunning reports whether a primary currently holds the lock for appID.
// It never acquires the lock and never touches the channel.
func PrimaryRunning(locker Locker, appID string) (bool, error) {
	name := strings.TrimSpace(appID)
	if name == "" {
		return false, fmt.Errorf("%w: application id is empty", ErrResourceUnavailable)
	}

	held, err := locker.Held(name)
	if err != nil {
		if errors.Is(err, ErrResourceUnavailable) {
			return false, err
		}
		return false, fmt.Errorf("%w: %s: %w", ErrResourceUnavailable, name, err)
	}
	return held, nil
}
