package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Backend is a device-management backend found on the local network
type Backend struct {
	// Instance is the advertised service instance name (e.g., "xiaozhi-manager")
	Instance string

	// Hostname is the mDNS hostname (e.g., "manager.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the HTTP port of the manager API
	Port int

	// Metadata holds the TXT records. "path" is the API base path
	// (default "/xiaozhi") and "scheme" may be "https".
	Metadata map[string]string

	// DiscoveredAt is when the backend answered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the backend
func (b *Backend) String() string {
	return fmt.Sprintf("%s (%s) at %s", b.Instance, b.Hostname, b.BaseURL())
}

// BaseURL returns the service URL the request wrappers are built on
func (b *Backend) BaseURL() string {
	scheme := b.GetMetadata("scheme")
	if scheme != "https" {
		scheme = "http"
	}

	path := b.GetMetadata("path")
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")

	return scheme + "://" + net.JoinHostPort(b.IP, strconv.Itoa(b.Port)) + path
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (b *Backend) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}

func (b *Backend) key() string {
	return b.Instance + "|" + b.IP + "|" + strconv.Itoa(b.Port)
}
