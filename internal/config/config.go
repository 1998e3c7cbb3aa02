// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the data-plane token goes to the
// OS keychain.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"cosq/cli/internal/xdg"

	"gopkg.in/yaml.v3"
)

// filename of the config file inside the cosq config directory.
const filename = "config.yaml"

// ErrNotFound is returned when no config file exists yet.
var ErrNotFound = errors.New("config not found, run `cosq init` to get started")

// Account holds the Cosmos DB account the CLI talks to.
type Account struct {
	// Name is the Cosmos DB account name, used in messages.
	Name string `yaml:"name"`
	// Endpoint is the account endpoint URL, e.g. "https://acct.documents.azure.com:443/".
	Endpoint string `yaml:"endpoint"`
}

// Config holds non-sensitive CLI settings.
type Config struct {
	Account Account `yaml:"account"`
	// Database is the default database name, optional.
	Database string `yaml:"database,omitempty"`
	// Container is the default container name, optional.
	Container string `yaml:"container,omitempty"`
	// Concurrency bounds in-flight partition range requests. Zero means default.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// Path returns the path to the config file: <config_dir>/cosq/config.yaml.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// Load reads configuration from the standard location.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(p)
}

// LoadFrom reads configuration from a specific path.
func LoadFrom(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, ErrNotFound
		}
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Save writes configuration to the standard location with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(c, p)
}

// SaveTo writes configuration to a specific path, creating parent dirs.
func SaveTo(c Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
