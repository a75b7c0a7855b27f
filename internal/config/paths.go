package config

import (
	"os"
	"path/filepath"
)

// Paths contains the standard locations for polychat data.
type Paths struct {
	Data   string // ~/.local/share/polychat
	Config string // ~/.config/polychat
}

// GetPaths returns the standard paths, honoring XDG overrides.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", filepath.Join(os.Getenv("HOME"), ".local", "share")), "polychat"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config")), "polychat"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// StoragePath returns the chat storage directory.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

// DefaultConfigPath returns the config file location, honoring the
// POLYCHAT_CONFIG override.
func DefaultConfigPath() string {
	if path := os.Getenv("POLYCHAT_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().Config, "config.json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
