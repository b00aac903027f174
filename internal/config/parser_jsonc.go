package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	AppID       *string `json:"app_id"`
	LockName    *string `json:"lock_name"`
	ChannelName *string `json:"channel_name"`
	RuntimeDir  *string `json:"runtime_dir"`

	Send   *jsoncSend   `json:"send"`
	Server *jsoncServer `json:"server"`
	Scheme *jsoncScheme `json:"scheme"`
	Notify *jsoncNotify `json:"notify"`
}

type jsoncSend struct {
	TimeoutMS       *int    `json:"timeout_ms"`
	Payload         *string `json:"payload"`
	FailureExitCode *int    `json:"failure_exit_code"`
}

type jsoncServer struct {
	MaxMessageBytes *int64 `json:"max_message_bytes"`
	ReadTimeoutMS   *int   `json:"read_timeout_ms"`
	RebindAttempts  *int   `json:"rebind_attempts"`
	RebindInitialMS *int   `json:"rebind_initial_ms"`
	RebindMaxMS     *int   `json:"rebind_max_ms"`
}

type jsoncScheme struct {
	Enable *bool   `json:"enable"`
	Name   *string `json:"name"`
}

type jsoncNotify struct {
	Enable    *bool   `json:"enable"`
	Backend   *string `json:"backend"`
	AppName   *string `json:"app_name"`
	TimeoutMS *int    `json:"timeout_ms"`
	Command   *string `json:"command"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.AppID != nil {
		cfg.AppID = strings.TrimSpace(*payload.AppID)
		// Names follow app_id unless set explicitly.
		cfg.LockName = lockNameFor(cfg.AppID)
		cfg.ChannelName = channelNameFor(cfg.AppID)
	}
	if payload.LockName != nil {
		cfg.LockName = strings.TrimSpace(*payload.LockName)
	}
	if payload.ChannelName != nil {
		cfg.ChannelName = strings.TrimSpace(*payload.ChannelName)
	}
	if payload.RuntimeDir != nil {
		cfg.RuntimeDir = strings.TrimSpace(*payload.RuntimeDir)
	}

	if payload.Send != nil {
		if payload.Send.TimeoutMS != nil {
			cfg.Send.TimeoutMS = *payload.Send.TimeoutMS
		}
		if payload.Send.Payload != nil {
			cfg.Send.Payload = *payload.Send.Payload
		}
		if payload.Send.FailureExitCode != nil {
			cfg.Send.FailureExitCode = *payload.Send.FailureExitCode
			if cfg.Send.FailureExitCode == 0 {
				warnings = append(warnings, Warning{Message: "send.failure_exit_code=0 reports failed handoffs as success"})
			}
		}
	}

	if payload.Server != nil {
		if payload.Server.MaxMessageBytes != nil {
			cfg.Server.MaxMessageBytes = *payload.Server.MaxMessageBytes
		}
		if payload.Server.ReadTimeoutMS != nil {
			cfg.Server.ReadTimeoutMS = *payload.Server.ReadTimeoutMS
		}
		if payload.Server.RebindAttempts != nil {
			cfg.Server.RebindAttempts = *payload.Server.RebindAttempts
		}
		if payload.Server.RebindInitialMS != nil {
			cfg.Server.RebindInitialMS = *payload.Server.RebindInitialMS
		}
		if payload.Server.RebindMaxMS != nil {
			cfg.Server.RebindMaxMS = *payload.Server.RebindMaxMS
		}
	}

	if payload.Scheme != nil {
		if payload.Scheme.Enable != nil {
			cfg.Scheme.Enable = *payload.Scheme.Enable
		}
		if payload.Scheme.Name != nil {
			cfg.Scheme.Name = strings.ToLower(strings.TrimSpace(*payload.Scheme.Name))
		}
	}

	if payload.Notify != nil {
		if payload.Notify.Enable != nil {
			cfg.Notify.Enable = *payload.Notify.Enable
		}
		if payload.Notify.Backend != nil {
			cfg.Notify.Backend = strings.ToLower(strings.TrimSpace(*payload.Notify.Backend))
		}
		if payload.Notify.AppName != nil {
			cfg.Notify.AppName = strings.TrimSpace(*payload.Notify.AppName)
		}
		if payload.Notify.TimeoutMS != nil {
			cfg.Notify.TimeoutMS = *payload.Notify.TimeoutMS
		}
		if payload.Notify.Command != nil {
			raw := *payload.Notify.Command
			argv, err := splitCommand(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid notify.command: %w", err)
			}
			cfg.Notify.Command = CommandConfig{Raw: raw, Argv: argv}
		}
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
