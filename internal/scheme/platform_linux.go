//go:build linux

package scheme

// NewPlatformRegistrar returns the registrar for the current OS.
func NewPlatformRegistrar(appID string) Registrar {
	return DesktopEntryRegistrar{AppID: appID}
}
