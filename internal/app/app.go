package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rbright/handoff/internal/cli"
	"github.com/rbright/handoff/internal/config"
	"github.com/rbright/handoff/internal/doctor"
	"github.com/rbright/handoff/internal/instance"
	"github.com/rbright/handoff/internal/ipc"
	"github.com/rbright/handoff/internal/logging"
	"github.com/rbright/handoff/internal/notify"
	"github.com/rbright/handoff/internal/scheme"
	"github.com/rbright/handoff/internal/version"
)

// Runner executes one handoff invocation. Nil collaborators are replaced by
// the platform implementations derived from config.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Locker     instance.Locker
	Transport  ipc.Transport
	Presenter  notify.Presenter
	Registrar  scheme.Registrar
	Executable func() (string, error)
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("handoff"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("handoff"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message, "informational", w.Informational)
	}
	for _, w := range cfgLoaded.Actionable() {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"config_source", string(cfgLoaded.Source),
		"log", logRuntime.Path,
	)

	r = r.withDefaults(cfgLoaded.Config, logger)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandSend:
		return r.commandSend(ctx, cfgLoaded.Config, parsed.Payload, logger)
	case cli.CommandStatus:
		return r.commandStatus(cfgLoaded.Config)
	case cli.CommandRegister:
		return r.commandRegister(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded, r.Locker)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) withDefaults(cfg config.Config, logger *slog.Logger) Runner {
	dir := cfg.ResolvedRuntimeDir()
	if r.Locker == nil {
		r.Locker = instance.NewPlatformLocker(dir)
	}
	if r.Transport == nil {
		r.Transport = ipc.NewPlatformTransport(dir)
	}
	if r.Presenter == nil {
		r.Presenter = notify.New(cfg.Notify, r.Stdout, logger)
	}
	if r.Registrar == nil {
		r.Registrar = scheme.NewPlatformRegistrar(cfg.AppID)
	}
	if r.Executable == nil {
		r.Executable = os.Executable
	}
	return r
}

func (r Runner) channel(cfg config.Config, logger *slog.Logger) ipc.Channel {
	return ipc.Channel{
		Name:            cfg.ChannelName,
		Transport:       r.Transport,
		Logger:          logger.With("component", "channel", "channel", cfg.ChannelName),
		MaxMessageBytes: cfg.Server.MaxMessageBytes,
		ReadTimeout:     cfg.Server.ReadTimeout(),
	}
}

// commandRun decides the process role and either serves as primary or hands
// its payload to the primary.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	role, err := instance.NewGate(r.Locker).Acquire(cfg.LockName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("instance gate failed", "lock", cfg.LockName, "error", err.Error())
		return 1
	}
	logger.Info("instance role", "role", role.String(), "lock", cfg.LockName)

	payload, hasPayload := handoffPayload(cfg, parsed)

	if role == instance.RoleSecondary {
		if !hasPayload {
			logger.Info("primary already running; nothing to hand off", "channel", cfg.ChannelName)
			return 0
		}
		if err := r.channel(cfg, logger).Send(ctx, payload, cfg.SendTimeout()); err != nil {
			logger.Error("handoff failed",
				"channel", cfg.ChannelName,
				"timeout_ms", cfg.Send.TimeoutMS,
				"exit_code", cfg.Send.FailureExitCode,
				"error", err.Error(),
			)
			if cfg.Send.FailureExitCode != 0 {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
			}
			return cfg.Send.FailureExitCode
		}
		logger.Info("handoff delivered", "channel", cfg.ChannelName, "bytes", len(payload))
		return 0
	}

	initial := []string{}
	if hasPayload {
		initial = append(initial, payload)
	}
	if err := r.runPrimary(ctx, cfg, initial, logger); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("primary stopped", "error", err.Error())
		return 1
	}
	logger.Info("primary stopped")
	return 0
}

// handoffPayload applies send.payload over the launch argument.
func handoffPayload(cfg config.Config, parsed cli.Parsed) (string, bool) {
	if cfg.Send.Payload != "" {
		return cfg.Send.Payload, true
	}
	return parsed.Payload, parsed.HasPayload
}

func (r Runner) commandSend(ctx context.Context, cfg config.Config, payload string, logger *slog.Logger) int {
	if err := r.channel(cfg, logger).Send(ctx, payload, cfg.SendTimeout()); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("send failed", "channel", cfg.ChannelName, "error", err.Error())
		return 1
	}
	logger.Info("send delivered", "channel", cfg.ChannelName, "bytes", len(payload))
	return 0
}

// commandStatus reads the instance lock; connecting to the channel would hand
// the primary a message.
func (r Runner) commandStatus(cfg config.Config) int {
	running, err := instance.PrimaryRunning(r.Locker, cfg.LockName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if running {
		fmt.Fprintln(r.Stdout, "running")
	} else {
		fmt.Fprintln(r.Stdout, "idle")
	}
	return 0
}

func (r Runner) commandRegister(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if err := r.registerScheme(ctx, cfg, logger); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "registered %s://\n", cfg.Scheme.Name)
	return 0
}

func (r Runner) registerScheme(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	exePath, err := r.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := r.Registrar.Register(ctx, cfg.Scheme.Name, exePath); err != nil {
		return fmt.Errorf("register scheme %q: %w", cfg.Scheme.Name, err)
	}
	logger.Info("scheme registered", "scheme", cfg.Scheme.Name, "executable", exePath)
	return nil
}
