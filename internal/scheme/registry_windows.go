//go:build windows

package scheme

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// RegistryRegistrar writes a per-user URL protocol under
// HKCU\Software\Classes\<scheme>.
type RegistryRegistrar struct {
	AppID string
}

func (r RegistryRegistrar) Register(_ context.Context, scheme, exePath string) error {
	if err := validate(scheme, exePath); err != nil {
		return err
	}

	root := `Software\Classes\` + scheme
	if err := setValues(root, map[string]string{
		"":             fmt.Sprintf("URL:%s Protocol", r.AppID),
		"URL Protocol": "",
	}); err != nil {
		return err
	}
	if err := setValues(root+`\DefaultIcon`, map[string]string{
		"": exePath + ",1",
	}); err != nil {
		return err
	}
	return setValues(root+`\shell\open\command`, map[string]string{
		"": fmt.Sprintf(`"%s" "%%1"`, exePath),
	})
}

func setValues(path string, values map[string]string) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("create registry key %s: %w", path, err)
	}
	defer key.Close()

	for name, value := range values {
		if err := key.SetStringValue(name, value); err != nil {
			return fmt.Errorf("set registry value %s\\%s: %w", path, name, err)
		}
	}
	return nil
}
