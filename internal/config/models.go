package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/YanXich/xiaozhi-esp32-server/internal/request"
)

const (
	// CurrentVersion is the config file format version
	CurrentVersion = 1

	// DefaultServiceURL is used when nothing else names the backend
	DefaultServiceURL = "http://localhost:8002/xiaozhi"

	// DefaultDiscoveryService is the mDNS service type the backend advertises
	DefaultDiscoveryService = "_devmgr._tcp"

	// DefaultDiscoveryTimeout bounds an mDNS browse
	DefaultDiscoveryTimeout = 3 * time.Second
)

// Config is the user configuration file
type Config struct {
	Version   int             `yaml:"version"`
	URL       string          `yaml:"service_url,omitempty"` // Backend base URL, e.g. http://10.0.0.2:8002/xiaozhi
	Timeout   time.Duration   `yaml:"timeout,omitempty"`     // Per-request HTTP timeout
	Retry     RetryConfig     `yaml:"retry"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// RetryConfig controls how network failures are retried
type RetryConfig struct {
	Delay       time.Duration `yaml:"delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Window      time.Duration `yaml:"window"` // 0 retries until interrupted
	Exponential bool          `yaml:"exponential"`
}

// DiscoveryConfig controls mDNS lookup of the backend when no URL is set
type DiscoveryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
	Service string        `yaml:"service"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Timeout: request.DefaultTimeout,
		Retry: RetryConfig{
			Delay:       request.DefaultRetryDelay,
			MaxDelay:    request.DefaultMaxRetryDelay,
			Window:      request.DefaultRetryWindow,
			Exponential: true,
		},
		Discovery: DiscoveryConfig{
			Timeout: DefaultDiscoveryTimeout,
			Service: DefaultDiscoveryService,
		},
	}
}

// fillDefaults sets zero-valued durations and names to their defaults.
// Retry.Window is left alone since zero is meaningful.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = d.Retry.Delay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = d.Retry.MaxDelay
	}
	if c.Discovery.Timeout <= 0 {
		c.Discovery.Timeout = d.Discovery.Timeout
	}
	if c.Discovery.Service == "" {
		c.Discovery.Service = d.Discovery.Service
	}
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("invalid service_url %q: %w", c.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid service_url %q: scheme must be http or https", c.URL)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid service_url %q: missing host", c.URL)
		}
	}
	if c.Retry.Window < 0 {
		return fmt.Errorf("retry window must not be negative")
	}
	if c.Retry.MaxDelay < c.Retry.Delay {
		return fmt.Errorf("retry max_delay %s is shorter than delay %s", c.Retry.MaxDelay, c.Retry.Delay)
	}
	return nil
}

// ServiceURL returns the backend base URL without a trailing slash,
// falling back to DefaultServiceURL.
func (c *Config) ServiceURL() string {
	if c == nil || strings.TrimSpace(c.URL) == "" {
		return DefaultServiceURL
	}
	return strings.TrimRight(strings.TrimSpace(c.URL), "/")
}

// HasServiceURL reports whether a backend URL was configured explicitly
func (c *Config) HasServiceURL() bool {
	return c != nil && strings.TrimSpace(c.URL) != ""
}

// ApplyTo copies timeout and retry settings onto a request service
func (c *Config) ApplyTo(svc *request.Service) {
	svc.SetTimeout(c.Timeout)
	svc.SetRetry(c.Retry.Delay, c.Retry.MaxDelay, c.Retry.Window)
	svc.UseExponentialBackoff = c.Retry.Exponential
}
