package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "devmgr"
	configFile = "config.yaml"
)

var (
	// Process-wide configuration (loaded lazily)
	current     *Config
	currentOnce sync.Once
	currentErr  error
	currentMu   sync.RWMutex

	// Serializes file writes
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/devmgr or $HOME/.config/devmgr
//   - macOS: $HOME/.config/devmgr
//   - Windows: %LOCALAPPDATA%\devmgr
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the config file path. DEVMGR_CONFIG takes precedence
// over the platform directory.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the config file at path (the default path when empty), applies
// defaults and DEVMGR_* overrides and validates the result.
// A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes the configuration to path (the default path when empty).
// The file is written to a temporary name and renamed into place.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Device management client configuration
#
# Environment variables DEVMGR_SERVICE_URL, DEVMGR_TIMEOUT and
# DEVMGR_RETRY_WINDOW override the values below.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// Current returns the process-wide configuration, loading it from the
// default path on first use.
func Current() (*Config, error) {
	currentOnce.Do(func() {
		cfg, err := Load("")
		currentMu.Lock()
		current, currentErr = cfg, err
		currentMu.Unlock()
	})
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current, currentErr
}

// SetCurrent replaces the process-wide configuration
func SetCurrent(cfg *Config) {
	currentOnce.Do(func() {})
	currentMu.Lock()
	current, currentErr = cfg, nil
	currentMu.Unlock()
}

// ServiceURL returns the backend base URL of the process-wide configuration.
// It falls back to DefaultServiceURL when the configuration cannot be loaded.
func ServiceURL() string {
	cfg, err := Current()
	if err != nil {
		return DefaultServiceURL
	}
	return cfg.ServiceURL()
}
