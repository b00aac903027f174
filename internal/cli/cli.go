package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun      Command = "run"
	CommandSend     Command = "send"
	CommandStatus   Command = "status"
	CommandRegister Command = "register"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:      {},
	CommandSend:     {},
	CommandStatus:   {},
	CommandRegister: {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

// acceptsPayload lists commands that take one positional payload.
var acceptsPayload = map[Command]bool{
	CommandRun:  true,
	CommandSend: true,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Payload    string
	HasPayload bool
}

// Parse reads handoff arguments. With no command the process runs as a
// launcher, and a bare positional argument (typically a scheme URI) is the
// run payload.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRun}
	commandSet := false

	setPayload := func(value string) error {
		if parsed.HasPayload {
			return fmt.Errorf("unexpected argument: %s", value)
		}
		if !acceptsPayload[parsed.Command] {
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
		parsed.Payload = value
		parsed.HasPayload = true
		return nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			commandSet = true
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			commandSet = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--":
			for _, rest := range args[i+1:] {
				if err := setPayload(rest); err != nil {
					return Parsed{}, err
				}
			}
			i = len(args)
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; ok && !commandSet && !parsed.HasPayload {
				parsed.Command = cmd
				parsed.ShowHelp = cmd == CommandHelp
				commandSet = true
				continue
			}

			if err := setPayload(arg); err != nil {
				return Parsed{}, err
			}
		}
	}

	if parsed.Command == CommandSend && !parsed.HasPayload {
		return Parsed{}, errors.New("send requires a payload")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [run] [PAYLOAD]
  %[1]s [--config PATH] <command>

Without a command, the first launch becomes the primary instance and
listens for handoffs; later launches forward PAYLOAD to it and exit.

Commands:
  run       Start as primary, or hand PAYLOAD to the running primary (default)
  send      Send PAYLOAD to the running primary without claiming the lock
  status    Print whether a primary is running
  register  Register the URI scheme handler for this user
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/handoff/config.jsonc)
  -h, --help      Show help
  --version       Show version
  --              Treat the remaining argument as PAYLOAD
`, binaryName)
}
