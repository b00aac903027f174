// Package scheme registers handoff as the handler for a custom URI scheme.
package scheme

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/handoff/internal/config"
)

// ErrUnsupported is returned on platforms without a registration backend.
var ErrUnsupported = errors.New("scheme registration is not supported on this platform")

// Registrar associates a URI scheme with an executable for the current user.
type Registrar interface {
	Register(ctx context.Context, scheme, exePath string) error
}

func validate(scheme, exePath string) error {
	if err := config.ValidateSchemeName(scheme); err != nil {
		return err
	}
	if strings.TrimSpace(exePath) == "" {
		return fmt.Errorf("executable path cannot be empty")
	}
	return nil
}

type unsupported struct{}

func (unsupported) Register(context.Context, string, string) error {
	return ErrUnsupported
}
