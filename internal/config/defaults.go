package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns default paths for the CLI, checking environment
// variables first. Grounded on the teacher's own app.GetDefaults.
//
// Environment variables:
//   - PHOTOCORE_CONFIG_PATH: config file location (default: ~/.config/photocore.toml)
//   - PHOTOCORE_HOME: base directory for catalog/log data (default: ~/.local/share/photocore)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("PHOTOCORE_CONFIG_PATH"); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "photocore.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("PHOTOCORE_HOME"); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "photocore"), nil
}
