package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/klipprompt/internal/logging"
)

const (
	// ServiceType is the mDNS service type Moonraker advertises
	// when its [zeroconf] component is enabled
	ServiceType = "_moonraker._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for printer discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is Moonraker's default port
	DefaultPort = 7125
)

// browseFunc matches zeroconf.Resolver.Browse
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Scanner handles mDNS printer discovery
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration

	browse browseFunc
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

func (s *Scanner) browser() (browseFunc, error) {
	if s.browse != nil {
		return s.browse, nil
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	return resolver.Browse, nil
}

// Scan discovers Moonraker instances until the timeout or ctx expires.
// Duplicate announcements of the same instance are collapsed.
func (s *Scanner) Scan(ctx context.Context) ([]*Printer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	browse, err := s.browser()
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})

	var mu sync.Mutex
	printers := make([]*Printer, 0)

	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			printer := parseServiceEntry(entry)
			if printer == nil || seen[printer.Instance] {
				continue
			}
			seen[printer.Instance] = true
			logging.Debug("Discovered printer",
				zap.String("instance", printer.Instance),
				zap.String("address", printer.HostPort()),
			)
			mu.Lock()
			printers = append(printers, printer)
			mu.Unlock()
		}
	}()

	if err := browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for context to complete (timeout or cancellation)
	<-ctx.Done()

	// The resolver closes entries once the browse context ends; give it a
	// moment to flush before taking what has been collected.
	select {
	case <-done:
	case <-time.After(250 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Printer(nil), printers...), nil
}

// WaitForPrinter returns the first printer whose instance name or hostname
// contains name, case-insensitively.
func (s *Scanner) WaitForPrinter(ctx context.Context, name string) (*Printer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	browse, err := s.browser()
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Printer, 1)
	needle := strings.ToLower(name)

	go func() {
		for entry := range entries {
			printer := parseServiceEntry(entry)
			if printer == nil {
				continue
			}
			if strings.Contains(strings.ToLower(printer.Instance), needle) ||
				strings.Contains(strings.ToLower(printer.Hostname), needle) {
				select {
				case found <- printer:
				default:
				}
				cancel()
			}
		}
	}()

	if err := browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	select {
	case printer := <-found:
		return printer, nil
	default:
		return nil, fmt.Errorf("printer %q not found within %s", name, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Printer.
// Returns nil when the entry carries no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Printer {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	instance := entry.Instance
	if instance == "" {
		instance = strings.TrimSuffix(entry.HostName, ".")
	}

	return &Printer{
		Instance:     instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan with a custom timeout
func Scan(ctx context.Context, timeout time.Duration) ([]*Printer, error) {
	scanner := NewScanner()
	if timeout > 0 {
		scanner.Timeout = timeout
	}
	return scanner.Scan(ctx)
}
