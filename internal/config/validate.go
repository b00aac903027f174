package config

import (
	"fmt"
	"strings"
)

var validNotifyBackends = map[string]struct{}{
	"stdout":  {},
	"desktop": {},
	"command": {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, fmt.Errorf("app_id must not be empty")
	}
	if err := validateObjectName("lock_name", cfg.LockName); err != nil {
		return nil, err
	}
	if err := validateObjectName("channel_name", cfg.ChannelName); err != nil {
		return nil, err
	}
	if cfg.LockName == cfg.ChannelName {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"lock_name and channel_name are both %q; unrelated users of that name can collide", cfg.LockName)})
	}

	if cfg.Send.TimeoutMS <= 0 {
		return nil, fmt.Errorf("send.timeout_ms must be > 0")
	}
	if cfg.Send.FailureExitCode < 0 || cfg.Send.FailureExitCode > 125 {
		return nil, fmt.Errorf("send.failure_exit_code must be between 0 and 125")
	}

	if cfg.Server.MaxMessageBytes <= 0 {
		return nil, fmt.Errorf("server.max_message_bytes must be > 0")
	}
	if cfg.Server.ReadTimeoutMS < 0 {
		return nil, fmt.Errorf("server.read_timeout_ms must be >= 0")
	}
	if cfg.Server.RebindAttempts < 0 {
		return nil, fmt.Errorf("server.rebind_attempts must be >= 0")
	}
	if cfg.Server.RebindInitialMS <= 0 {
		return nil, fmt.Errorf("server.rebind_initial_ms must be > 0")
	}
	if cfg.Server.RebindMaxMS < cfg.Server.RebindInitialMS {
		return nil, fmt.Errorf("server.rebind_max_ms must be >= server.rebind_initial_ms")
	}

	if cfg.Scheme.Enable {
		if err := ValidateSchemeName(cfg.Scheme.Name); err != nil {
			return nil, fmt.Errorf("scheme.name: %w", err)
		}
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))
	if _, ok := validNotifyBackends[backend]; !ok {
		return nil, fmt.Errorf("notify.backend must be one of: stdout, desktop, command")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.backend=desktop")
	}
	if backend == "command" && len(cfg.Notify.Command.Argv) == 0 {
		return nil, fmt.Errorf("notify.command must not be empty when notify.backend=command")
	}
	if backend == "command" && strings.Contains(cfg.Notify.Command.Argv[0], MessagePlaceholder) {
		return nil, fmt.Errorf("notify.command program must not contain %s", MessagePlaceholder)
	}
	if cfg.Notify.TimeoutMS < 0 {
		return nil, fmt.Errorf("notify.timeout_ms must be >= 0")
	}

	return warnings, nil
}

// validateObjectName rejects names that would escape the lock/socket
// directory or the kernel object namespace.
func validateObjectName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%s %q must not contain path separators", field, name)
	}
	return nil
}

// ValidateSchemeName checks an RFC 3986 scheme: a letter followed by letters,
// digits, '+', '-' or '.'.
func ValidateSchemeName(name string) error {
	if name == "" {
		return fmt.Errorf("scheme must not be empty")
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return fmt.Errorf("invalid scheme %q", name)
		}
	}
	return nil
}
