// Package xdg provides helpers to resolve XDG Base Directory paths for cosq.
// It determines appropriate locations for configuration files on Unix-like
// systems, falling back to traditional locations when the XDG environment
// variables are not set, and keeps permissions private for directories that
// hold account settings.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for cosq.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/cosq when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "cosq")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
