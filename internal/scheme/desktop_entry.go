package scheme

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DesktopEntryRegistrar installs a hidden freedesktop .desktop entry and
// makes it the default handler for x-scheme-handler/<scheme>.
type DesktopEntryRegistrar struct {
	AppID string
	// DataDir defaults to $XDG_DATA_HOME, then ~/.local/share.
	DataDir string
	// XDGMime overrides the xdg-mime binary; "-" skips the call.
	XDGMime string
}

// EntryName returns the .desktop file name for r.
func (r DesktopEntryRegistrar) EntryName() string {
	return r.AppID + "-handler.desktop"
}

// EntryPath returns where Register writes the desktop entry.
func (r DesktopEntryRegistrar) EntryPath() (string, error) {
	dir, err := r.dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "applications", r.EntryName()), nil
}

func (r DesktopEntryRegistrar) Register(ctx context.Context, scheme, exePath string) error {
	if err := validate(scheme, exePath); err != nil {
		return err
	}
	if strings.TrimSpace(r.AppID) == "" {
		return fmt.Errorf("app id cannot be empty")
	}

	path, err := r.EntryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create applications dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(desktopEntry(r.AppID, scheme, exePath)), 0o644); err != nil {
		return fmt.Errorf("write desktop entry: %w", err)
	}

	if r.XDGMime == "-" {
		return nil
	}
	xdgMime := r.XDGMime
	if xdgMime == "" {
		xdgMime = "xdg-mime"
	}

	out, err := exec.CommandContext(ctx, xdgMime, "default", r.EntryName(), "x-scheme-handler/"+scheme).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("xdg-mime default failed: %w", err)
		}
		return fmt.Errorf("xdg-mime default failed: %w (%s)", err, trimmed)
	}
	return nil
}

func (r DesktopEntryRegistrar) dataDir() (string, error) {
	if r.DataDir != "" {
		return r.DataDir, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share"), nil
}

func desktopEntry(appID, scheme, exePath string) string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s URL Handler\n", appID)
	fmt.Fprintf(&b, "Exec=%s %%u\n", quoteExec(exePath))
	fmt.Fprintf(&b, "MimeType=x-scheme-handler/%s;\n", scheme)
	b.WriteString("NoDisplay=true\n")
	b.WriteString("Terminal=false\n")
	return b.String()
}

// quoteExec applies desktop-entry Exec quoting to a single argument.
func quoteExec(arg string) string {
	if !strings.ContainsAny(arg, " \t\n\"'\\><~|&;$*?#()`") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(arg) + `"`
}
