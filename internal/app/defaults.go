package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - BAGGER_CONFIG_PATH: config file location (default: ~/.config/bagger.toml)
//   - BAGGER_HOME: base directory for bagger data (default: ~/.local/share/bagger)
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
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking BAGGER_CONFIG_PATH env var first,
// then falling back to the default ~/.config/bagger.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("BAGGER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "bagger.toml"), nil
}

// getBaseDir returns the base directory for bagger data, checking BAGGER_HOME env var first,
// then falling back to the XDG default ~/.local/share/bagger.
func getBaseDir() (string, error) {
	if path := os.Getenv("BAGGER_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "bagger"), nil
}
