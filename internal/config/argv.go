package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MessagePlaceholder marks where notify.command receives the message.
const MessagePlaceholder = "{message}"

var (
	errOpenQuote  = errors.New("unterminated quote")
	errOpenEscape = errors.New("unterminated escape sequence")
)

// splitCommand tokenizes a shell-like command line. Single quotes are
// literal, a backslash escapes the next rune elsewhere, and a '#' at the
// start of a word comments out the rest of the line.
func splitCommand(line string) ([]string, error) {
	var (
		argv    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

scan:
	for _, r := range line {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\\':
			escaped, inWord = true, true
		case quote == '"':
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, word.String())
				word.Reset()
				inWord = false
			}
		case r == '#' && !inWord:
			break scan
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escaped:
		return nil, fmt.Errorf("%w in command %q", errOpenEscape, line)
	case quote != 0:
		return nil, fmt.Errorf("%w in command %q", errOpenQuote, line)
	}
	if inWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}

// ExpandArgv substitutes message for every MessagePlaceholder in argv. When
// no argument carries the placeholder the message is appended instead.
func ExpandArgv(argv []string, message string) []string {
	out := make([]string, 0, len(argv)+1)
	placed := false
	for _, arg := range argv {
		if strings.Contains(arg, MessagePlaceholder) {
			arg = strings.ReplaceAll(arg, MessagePlaceholder, message)
			placed = true
		}
		out = append(out, arg)
	}
	if !placed {
		out = append(out, message)
	}
	return out
}
