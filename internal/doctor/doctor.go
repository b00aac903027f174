// Package doctor runs readiness diagnostics for config, the runtime
// directory, the local channel, and the desktop helpers handoff shells out to.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rbright/handoff/internal/config"
	"github.com/rbright/handoff/internal/instance"
	"github.com/rbright/handoff/internal/ipc"
)

// maxSocketPath is the smallest sun_path limit among supported unix systems.
const maxSocketPath = 104

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded, locker instance.Locker) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	dir := cfg.Config.ResolvedRuntimeDir()
	checks = append(checks, checkRuntimeDir(dir))
	if runtime.GOOS != "windows" {
		checks = append(checks, checkSocketPath(ipc.SocketTransport{Dir: dir}.Path(cfg.Config.ChannelName)))
	}

	checks = append(checks, checkPrimary(locker, cfg.Config.LockName))

	if cfg.Config.Notify.Enable {
		switch strings.ToLower(strings.TrimSpace(cfg.Config.Notify.Backend)) {
		case "desktop":
			checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
		case "command":
			checks = append(checks, checkCommand(cfg.Config.Notify.Command.Argv, "notify.command"))
		}
	}

	if cfg.Config.Scheme.Enable && runtime.GOOS == "linux" {
		checks = append(checks, checkEnv("XDG_CURRENT_DESKTOP", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "desktop session detected", "XDG_CURRENT_DESKTOP is empty; scheme handlers may not be honored"))
		checks = append(checks, checkBinary("xdg-mime", "scheme registration uses xdg-mime"))
	}

	return Report{Checks: checks}
}

// checkRuntimeDir verifies lock and socket files can be created in dir.
func checkRuntimeDir(dir string) Check {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "runtime_dir", Pass: false, Message: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".handoff-doctor-*")
	if err != nil {
		return Check{Name: "runtime_dir", Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Check{Name: "runtime_dir", Pass: true, Message: fmt.Sprintf("%s is writable", dir)}
}

func checkSocketPath(path string) Check {
	if len(path) >= maxSocketPath {
		return Check{
			Name:    "socket_path",
			Pass:    false,
			Message: fmt.Sprintf("%s is %d bytes; unix sockets allow fewer than %d", path, len(path), maxSocketPath),
		}
	}
	return Check{Name: "socket_path", Pass: true, Message: filepath.Clean(path)}
}

// checkPrimary is informational: no primary is a healthy state. It reads the
// instance lock so the running primary never sees a connection.
func checkPrimary(locker instance.Locker, lockName string) Check {
	running, err := instance.PrimaryRunning(locker, lockName)
	switch {
	case err != nil:
		return Check{Name: "primary", Pass: false, Message: err.Error()}
	case running:
		return Check{Name: "primary", Pass: true, Message: fmt.Sprintf("running (lock %q is held)", lockName)}
	default:
		return Check{Name: "primary", Pass: true, Message: fmt.Sprintf("idle (lock %q is free)", lockName)}
	}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
