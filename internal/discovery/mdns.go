package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/YanXich/xiaozhi-esp32-server/internal/logging"
)

const (
	// ServiceType is the mDNS service type the manager API advertises
	ServiceType = "_devmgr._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for backend discovery
	DefaultScanTimeout = 3 * time.Second

	// DefaultPort is the manager API port used when the record has none
	DefaultPort = 8002

	// DefaultPath is the API base path used when the TXT records have none
	DefaultPath = "/xiaozhi"
)

// ErrNotFound is returned when no backend answered before the timeout
var ErrNotFound = errors.New("no device-management backend found")

// Browser is the part of *zeroconf.Resolver the scanner uses
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// Scanner handles mDNS discovery of backends
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration

	// Service is the mDNS service type to browse
	Service string

	// NewBrowser creates the resolver; nil uses zeroconf
	NewBrowser func() (Browser, error)
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Service: ServiceType,
	}
}

func (s *Scanner) browser() (Browser, error) {
	if s.NewBrowser != nil {
		return s.NewBrowser()
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	return resolver, nil
}

func (s *Scanner) service() string {
	if s.Service == "" {
		return ServiceType
	}
	return s.Service
}

// Scan collects every backend that answers before the timeout
func (s *Scanner) Scan(ctx context.Context) ([]*Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		backends []*Backend
		seen     = make(map[string]bool)
	)
	err := s.browse(ctx, func(b *Backend) bool {
		mu.Lock()
		defer mu.Unlock()
		if !seen[b.key()] {
			seen[b.key()] = true
			backends = append(backends, b)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return backends, nil
}

// FindFirst returns the first backend that answers
func (s *Scanner) FindFirst(ctx context.Context) (*Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var found *Backend
	err := s.browse(ctx, func(b *Backend) bool {
		found = b
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w within %s (service %s)", ErrNotFound, s.Timeout, s.service())
	}
	return found, nil
}

// browse feeds parsed entries to visit until visit returns false or ctx ends.
// It returns only after the collecting goroutine has exited.
func (s *Scanner) browse(ctx context.Context, visit func(*Backend) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resolver, err := s.browser()
	if err != nil {
		return err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				b := parseServiceEntry(entry)
				if b == nil {
					continue
				}
				logging.Debug("Discovered backend", zap.String("backend", b.String()))
				if !visit(b) {
					cancel()
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, s.service(), ServiceDomain, entries); err != nil {
		cancel()
		<-collected
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-collected
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Backend.
// Entries without an address are dropped.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Backend {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Backend{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Discover is a convenience function returning the base URL of the first
// backend advertising service within timeout
func Discover(ctx context.Context, service string, timeout time.Duration) (string, error) {
	scanner := NewScanner()
	scanner.Service = service
	if timeout > 0 {
		scanner.Timeout = timeout
	}
	b, err := scanner.FindFirst(ctx)
	if err != nil {
		return "", err
	}
	return b.BaseURL(), nil
}
