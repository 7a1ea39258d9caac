package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Printer represents a Moonraker instance discovered on the network
type Printer struct {
	// Instance is the advertised service instance name (e.g., "Moonraker Instance on voron")
	Instance string

	// Hostname is the mDNS hostname (e.g., "voron.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the Moonraker HTTP/websocket port (typically 7125)
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the printer was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the printer
func (p *Printer) String() string {
	return fmt.Sprintf("%s (%s) at %s", p.Instance, p.Hostname, p.HostPort())
}

// HostPort returns ip:port, bracketing IPv6 addresses
func (p *Printer) HostPort() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// WebsocketURL returns the Moonraker websocket endpoint
func (p *Printer) WebsocketURL() string {
	return "ws://" + p.HostPort() + "/websocket"
}

// Key returns the registry key for the printer: the short hostname, or the
// instance name when no hostname was advertised.
func (p *Printer) Key() string {
	host := strings.TrimSuffix(strings.TrimSuffix(p.Hostname, "."), ".local")
	if host != "" {
		return strings.ToLower(host)
	}
	return strings.ToLower(strings.ReplaceAll(p.Instance, " ", "-"))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (p *Printer) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
