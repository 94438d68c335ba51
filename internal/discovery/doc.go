// Package discovery locates the device-management backend on the local
// network with mDNS.
//
// The manager API may advertise itself as a "_devmgr._tcp" service. TXT
// records refine the URL built from the answer:
//
//	path=/xiaozhi   API base path (default /xiaozhi)
//	scheme=https    use TLS (default http)
//
// Discovery is only consulted when no service URL is configured.
//
// # Usage Example
//
//	url, err := discovery.Discover(ctx, discovery.ServiceType, 3*time.Second)
//	if errors.Is(err, discovery.ErrNotFound) {
//	    // fall back to the default URL
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The backend must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
