package instance

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memoryLocker is an in-process stand-in for the OS lock namespace.
type memoryLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	err   error
	calls int
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: map[string]bool{}}
}

func (m *memoryLocker) TryLock(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *memoryLocker) Held(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.held[name], nil
}

func TestPrimaryRunningReflectsHolder(t *testing.T) {
	locker := newMemoryLocker()

	running, err := PrimaryRunning(locker, "AppX")
	require.NoError(t, err)
	require.False(t, running)

	role, err := NewGate(locker).Acquire("AppX")
	require.NoError(t, err)
	require.Equal(t, RolePrimary, role)

	running, err = PrimaryRunning(locker, "AppX")
	require.NoError(t, err)
	require.True(t, running)

	_, err = PrimaryRunning(locker, " ")
	require.ErrorIs(t, err, ErrResourceUnavailable)

	locker.err = errors.New("denied")
	_, err = PrimaryRunning(locker, "AppX")
	require.ErrorIs(t, err, ErrResourceUnavailable)
}

func TestAcquireFirstCallerIsPrimary(t *testing.T) {
	locker := newMemoryLocker()

	role, err := NewGate(locker).Acquire("AppX")
	require.NoError(t, err)
	require.Equal(t, RolePrimary, role)

	role, err = NewGate(locker).Acquire("AppX")
	require.NoError(t, err)
	require.Equal(t, RoleSecondary, role)

	role, err = NewGate(locker).Acquire("AppY")
	require.NoError(t, err)
	require.Equal(t, RolePrimary, role)
}

func TestAcquireIsOncePerGate(t *testing.T) {
	locker := newMemoryLocker()
	gate := NewGate(locker)

	role, err := gate.Acquire("AppX")
	require.NoError(t, err)
	require.Equal(t, RolePrimary, role)

	role, err = gate.Acquire("AppX")
	require.ErrorIs(t, err, ErrAlreadyAcquired)
	require.Equal(t, RolePrimary, role)
	require.Equal(t, 1, locker.calls)
}

func TestAcquireWrapsLockerFailures(t *testing.T) {
	locker := newMemoryLocker()
	locker.err = errors.New("permission denied")

	_, err := NewGate(locker).Acquire("AppX")
	require.ErrorIs(t, err, ErrResourceUnavailable)
	require.Contains(t, err.Error(), "permission denied")
}

func TestAcquireRejectsEmptyID(t *testing.T) {
	locker := newMemoryLocker()

	_, err := NewGate(locker).Acquire("   ")
	require.ErrorIs(t, err, ErrResourceUnavailable)
	require.Zero(t, locker.calls)
}

func TestRoleString(t *testing.T) {
	require.Equal(t, "primary", RolePrimary.String())
	require.Equal(t, "secondary", RoleSecondary.String())
	require.Equal(t, "role(7)", Role(7).String())
}
