//go:build !linux && !windows

package scheme

// NewPlatformRegistrar returns the registrar for the current OS.
func NewPlatformRegistrar(string) Registrar {
	return unsupported{}
}
