package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file
const (
	EnvServiceURL  = "DEVMGR_SERVICE_URL"
	EnvTimeout     = "DEVMGR_TIMEOUT"
	EnvRetryWindow = "DEVMGR_RETRY_WINDOW"
	EnvConfigPath  = "DEVMGR_CONFIG"
)

// LoadDotEnv loads environment files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
// With no arguments ".env" in the working directory is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from DEVMGR_* environment variables
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvServiceURL)); v != "" {
		c.URL = v
	}
	if err := envDuration(EnvTimeout, &c.Timeout); err != nil {
		return err
	}
	return envDuration(EnvRetryWindow, &c.Retry.Window)
}

func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = d
	return nil
}
