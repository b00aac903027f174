// Package config resolves, parses, validates, and defaults handoff configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the fully materialized runtime configuration used by handoff.
type Config struct {
	AppID       string
	LockName    string
	ChannelName string
	RuntimeDir  string
	Send        SendConfig
	Server      ServerConfig
	Scheme      SchemeConfig
	Notify      NotifyConfig
}

// SendConfig controls the secondary-instance handoff.
type SendConfig struct {
	TimeoutMS int
	// Payload replaces the launch argument when non-empty.
	Payload string
	// FailureExitCode is the exit status after a failed handoff.
	FailureExitCode int
}

// ServerConfig controls the primary's receive loop.
type ServerConfig struct {
	MaxMessageBytes int64
	ReadTimeoutMS   int
	RebindAttempts  int
	RebindInitialMS int
	RebindMaxMS     int
}

// SchemeConfig controls URI-scheme registration by the primary.
type SchemeConfig struct {
	Enable bool
	Name   string
}

// NotifyConfig controls how received messages are presented.
type NotifyConfig struct {
	Enable    bool
	Backend   string
	AppName   string
	TimeoutMS int
	Command   CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message. Informational warnings
// go to the log only.
type Warning struct {
	Line          int
	Message       string
	Informational bool
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// ResolvedRuntimeDir returns the directory for lock and socket files.
func (c Config) ResolvedRuntimeDir() string {
	if dir := strings.TrimSpace(c.RuntimeDir); dir != "" {
		return dir
	}
	return os.TempDir()
}

// SendTimeout returns the handoff connect-and-write budget.
func (c Config) SendTimeout() time.Duration {
	return time.Duration(c.Send.TimeoutMS) * time.Millisecond
}

// ReadTimeout returns the per-message read budget. Zero disables it.
func (c ServerConfig) ReadTimeout() time.Duration {
	if c.ReadTimeoutMS == 0 {
		return -1
	}
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}
