//go:build windows

package scheme

// NewPlatformRegistrar returns the registrar for the current OS.
func NewPlatformRegistrar(appID string) Registrar {
	return RegistryRegistrar{AppID: appID}
}
