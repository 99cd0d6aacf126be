package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Save writes cfg to its XDG config file location, creating the parent
// directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SaveTheme updates only the theme name in the config file.
func SaveTheme(themeName string) error {
	cfg, err := Load("")
	if err != nil {
		return err
	}
	cfg.UI.Theme = themeName
	return Save(cfg)
}
