package config

import (
	"sort"
	"time"
)

// Presenter names accepted in Preferences.Presenter
const (
	PresenterTUI  = "tui"
	PresenterHTTP = "http"
)

// Registry represents the entire user configuration file.
// It stores known Moonraker instances and application preferences.
type Registry struct {
	Version     int                 `yaml:"version"`
	Printers    map[string]*Printer `yaml:"printers,omitempty"` // Keyed by mDNS instance name or a user chosen key
	Preferences *Preferences        `yaml:"preferences,omitempty"`
}

// Printer represents a Moonraker instance the user has connected to or discovered.
type Printer struct {
	Nickname     string    `yaml:"nickname,omitempty"`      // User-friendly name
	MoonrakerURL string    `yaml:"moonraker_url,omitempty"` // e.g. ws://voron.local:7125/websocket
	LastIP       string    `yaml:"last_ip,omitempty"`       // Last known IP address
	LastSeen     time.Time `yaml:"last_seen,omitempty"`     // Last discovery/connection time
	// API keys are never stored here; see KLIPPROMPT_API_KEY.
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultPrinter  string `yaml:"default_printer,omitempty"` // Registry key used when none is given
	AutoDiscover    bool   `yaml:"auto_discover"`             // Fall back to mDNS discovery when no printer is configured
	DiscoverTimeout int    `yaml:"discover_timeout"`          // mDNS discovery timeout in seconds
	Presenter       string `yaml:"presenter,omitempty"`       // "tui" or "http"
	HTTPAddr        string `yaml:"http_addr,omitempty"`       // Listen address of the HTTP presenter
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: 5,
		Presenter:       PresenterTUI,
		HTTPAddr:        "127.0.0.1:7130",
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Printers:    make(map[string]*Printer),
		Preferences: defaultPreferences(),
	}
}

// GetPrinter retrieves a printer by registry key.
// Returns nil if the printer doesn't exist in the registry.
func (r *Registry) GetPrinter(key string) *Printer {
	return r.Printers[key]
}

// EnsurePrinter ensures a printer entry exists in the registry and returns it.
func (r *Registry) EnsurePrinter(key string) *Printer {
	if r.Printers == nil {
		r.Printers = make(map[string]*Printer)
	}

	if printer, exists := r.Printers[key]; exists {
		return printer
	}

	printer := &Printer{}
	r.Printers[key] = printer
	return printer
}

// UpdatePrinterLastSeen records a discovery or connection.
func (r *Registry) UpdatePrinterLastSeen(key, ip, moonrakerURL string) {
	printer := r.EnsurePrinter(key)
	printer.LastSeen = time.Now()
	printer.LastIP = ip
	if moonrakerURL != "" {
		printer.MoonrakerURL = moonrakerURL
	}
}

// SetPrinterNickname sets a user-friendly nickname for a printer.
func (r *Registry) SetPrinterNickname(key, nickname string) {
	printer := r.EnsurePrinter(key)
	printer.Nickname = nickname
}

// Keys returns the printer keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.Printers))
	for k := range r.Printers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
