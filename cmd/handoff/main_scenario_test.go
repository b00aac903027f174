//go:build !windows

package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMainPrimaryReceivesSecondaryLaunches(t *testing.T) {
	runtimeDir := shortTempDir(t)
	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
  // scenario config
  "app_id": "appx",
  "runtime_dir": "`+runtimeDir+`",
  "scheme": { "enable": false },
  "notify": { "backend": "stdout" },
}`), 0o600))
	env := append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "XDG_STATE_HOME="+t.TempDir())

	var primaryOut lockedBuffer
	primary := exec.Command(os.Args[0], "-test.run=^TestMainHelperProcess$", "--", "--config", configPath)
	primary.Env = env
	primary.Stdout = &primaryOut
	primary.Stderr = &primaryOut
	require.NoError(t, primary.Start())
	t.Cleanup(func() { _ = primary.Process.Kill() })

	socketPath := filepath.Join(runtimeDir, "appx-channel.sock")
	require.Eventually(t, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	for _, payload := range []string{"hello", "world"} {
		secondary := exec.Command(os.Args[0], "-test.run=^TestMainHelperProcess$", "--", "--config", configPath, payload)
		secondary.Env = env
		output, err := secondary.CombinedOutput()
		require.NoError(t, err, string(output))
	}

	require.Eventually(t, func() bool {
		return strings.Contains(primaryOut.String(), "message: world")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, primary.Process.Signal(syscall.SIGTERM))
	require.NoError(t, primary.Wait())
	require.Contains(t, primaryOut.String(), "message: hello\nmessage: world\n")

	_, err := os.Stat(socketPath)
	require.True(t, os.IsNotExist(err))
}

func TestMainSecondaryWithoutPrimaryExitsZero(t *testing.T) {
	runtimeDir := shortTempDir(t)
	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"runtime_dir": "`+runtimeDir+`", "scheme": {"enable": false}}`), 0o600))

	// Holding the lock without serving makes the next launch a secondary
	// that finds no listener.
	holder := exec.Command(os.Args[0], "-test.run=^TestMainLockHolderProcess$")
	holder.Env = append(os.Environ(), "GO_WANT_LOCK_HOLDER=1", "HANDOFF_LOCK_PATH="+filepath.Join(runtimeDir, "handoff-lock.lock"))
	stdin, err := holder.StdinPipe()
	require.NoError(t, err)
	holderOut, err := holder.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, holder.Start())
	t.Cleanup(func() {
		_ = stdin.Close()
		_ = holder.Wait()
	})
	ready := make([]byte, 6)
	_, err = holderOut.Read(ready)
	require.NoError(t, err)

	cmd := exec.Command(os.Args[0], "-test.run=^TestMainHelperProcess$", "--", "--config", configPath, "orphan")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "XDG_STATE_HOME="+t.TempDir())

	started := time.Now()
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(started)

	require.NoError(t, err, string(output))
	require.GreaterOrEqual(t, elapsed, 2*time.Second)
	require.Less(t, elapsed, 5*time.Second)
}

func TestMainLockHolderProcess(t *testing.T) {
	if os.Getenv("GO_WANT_LOCK_HOLDER") != "1" {
		return
	}

	path := os.Getenv("HANDOFF_LOCK_PATH")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		os.Exit(1)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		os.Exit(1)
	}
	_, _ = os.Stdout.WriteString("ready\n")
	_, _ = os.Stdin.Read(make([]byte, 1))
	os.Exit(0)
}

// shortTempDir keeps socket paths under the sun_path limit on macOS.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "hf")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
