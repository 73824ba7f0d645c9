package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// UserConfigDir returns the default configuration directory for the application.
// It follows platform-specific conventions:
//   - Linux/Unix: $XDG_CONFIG_HOME/sdprep or $HOME/.config/sdprep
//   - macOS: $HOME/Library/Application Support/sdprep
func UserConfigDir() (string, error) {
	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		return configDir, nil
	}
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil

	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, AppName), nil
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, ".config", AppName), nil
	}
}

// EnsureDir ensures that the specified directory exists, creating it if necessary.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
