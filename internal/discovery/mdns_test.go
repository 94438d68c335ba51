package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

// fakeBrowser answers a browse with a fixed set of entries
type fakeBrowser struct {
	entries []*zeroconf.ServiceEntry
	err     error
	service string
}

func (f *fakeBrowser) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	f.service = service
	if f.err != nil {
		return f.err
	}
	go func() {
		for _, e := range f.entries {
			select {
			case entries <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func scannerWith(b *fakeBrowser, timeout time.Duration) *Scanner {
	s := NewScanner()
	s.Timeout = timeout
	s.NewBrowser = func() (Browser, error) { return b, nil }
	return s
}

func entry(instance, ip string, port int, txt ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: instance},
		HostName:      instance + ".local.",
		Port:          port,
		Text:          txt,
	}
	if ip != "" {
		e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	}
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name    string
		entry   *zeroconf.ServiceEntry
		wantNil bool
		wantURL string
	}{
		{
			name:    "defaults",
			entry:   entry("manager", "192.168.1.20", 0),
			wantURL: "http://192.168.1.20:8002/xiaozhi",
		},
		{
			name:    "custom port and path",
			entry:   entry("manager", "10.0.0.2", 9000, "path=/api/", "version=0.8"),
			wantURL: "http://10.0.0.2:9000/api",
		},
		{
			name:    "https without leading slash",
			entry:   entry("manager", "10.0.0.2", 443, "scheme=https", "path=xiaozhi"),
			wantURL: "https://10.0.0.2:443/xiaozhi",
		},
		{
			name: "ipv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "v6"},
				Port:          8002,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantURL: "http://[fe80::1]:8002/xiaozhi",
		},
		{
			name:    "no address",
			entry:   entry("manager", "", 8002),
			wantNil: true,
		},
		{
			name:    "nil entry",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if b != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", b)
				}
				return
			}
			if b == nil {
				t.Fatal("parseServiceEntry() = nil")
			}
			if got := b.BaseURL(); got != tt.wantURL {
				t.Errorf("BaseURL() = %s, want %s", got, tt.wantURL)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	b := parseServiceEntry(entry("manager", "10.0.0.2", 8002, "version=0.8", "flag"))
	if b.GetMetadata("version") != "0.8" {
		t.Errorf("version = %q", b.GetMetadata("version"))
	}
	if _, ok := b.Metadata["flag"]; !ok {
		t.Error("key without value should be kept")
	}
	if (&Backend{}).GetMetadata("x") != "" {
		t.Error("nil metadata should read as empty")
	}
}

func TestScanner_Scan(t *testing.T) {
	browser := &fakeBrowser{entries: []*zeroconf.ServiceEntry{
		entry("a", "10.0.0.1", 8002),
		entry("a", "10.0.0.1", 8002),
		entry("b", "10.0.0.2", 8002),
		entry("c", "", 8002),
	}}

	backends, err := scannerWith(browser, 100*time.Millisecond).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(backends) != 2 {
		t.Fatalf("Scan() found %d backends, want 2 (deduplicated)", len(backends))
	}
	if browser.service != ServiceType {
		t.Errorf("browsed service %q", browser.service)
	}
}

func TestScanner_FindFirst(t *testing.T) {
	browser := &fakeBrowser{entries: []*zeroconf.ServiceEntry{
		entry("first", "10.0.0.1", 8002),
		entry("second", "10.0.0.2", 8002),
	}}

	start := time.Now()
	b, err := scannerWith(browser, 5*time.Second).FindFirst(context.Background())
	if err != nil {
		t.Fatalf("FindFirst() error = %v", err)
	}
	if b.Instance != "first" {
		t.Errorf("FindFirst() = %s", b.Instance)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("FindFirst() should return as soon as a backend answers")
	}
}

func TestScanner_FindFirstNotFound(t *testing.T) {
	_, err := scannerWith(&fakeBrowser{}, 20*time.Millisecond).FindFirst(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindFirst() error = %v, want ErrNotFound", err)
	}
}

func TestScanner_BrowseError(t *testing.T) {
	browser := &fakeBrowser{err: errors.New("no multicast interface")}
	if _, err := scannerWith(browser, 20*time.Millisecond).Scan(context.Background()); err == nil {
		t.Error("Scan() should report browse errors")
	}
}

func TestScanner_CustomService(t *testing.T) {
	browser := &fakeBrowser{}
	s := scannerWith(browser, 10*time.Millisecond)
	s.Service = "_xiaozhi._tcp"

	_, _ = s.Scan(context.Background())
	if browser.service != "_xiaozhi._tcp" {
		t.Errorf("browsed service %q", browser.service)
	}
}
