package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the registry
const (
	MoonrakerURLEnvVar = "KLIPPROMPT_MOONRAKER_URL"
	APIKeyEnvVar       = "KLIPPROMPT_API_KEY"
	HTTPAddrEnvVar     = "KLIPPROMPT_HTTP_ADDR"
)

// LoadEnv loads variables from .env files into the process environment.
// Variables that are already set win. With no paths, ./.env is tried; a
// missing file is not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		err := godotenv.Load()
		if err != nil && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Connection is everything needed to reach a printer
type Connection struct {
	PrinterKey   string // empty when the URL came from the environment
	MoonrakerURL string
	APIKey       string
}

// ResolveConnection picks the Moonraker endpoint. KLIPPROMPT_MOONRAKER_URL
// wins; otherwise the printer is looked up with FindPrinter.
func (r *Registry) ResolveConnection(query string) (*Connection, error) {
	conn := &Connection{APIKey: os.Getenv(APIKeyEnvVar)}

	if url := os.Getenv(MoonrakerURLEnvVar); url != "" && query == "" {
		conn.MoonrakerURL = url
		return conn, nil
	}

	key, printer, err := r.FindPrinter(query)
	if err != nil {
		return nil, err
	}
	if printer.MoonrakerURL == "" {
		return nil, fmt.Errorf("printer %q has no moonraker_url", key)
	}

	conn.PrinterKey = key
	conn.MoonrakerURL = printer.MoonrakerURL
	return conn, nil
}

// HTTPAddr returns the HTTP presenter listen address, honouring KLIPPROMPT_HTTP_ADDR.
func (r *Registry) HTTPAddr() string {
	if addr := os.Getenv(HTTPAddrEnvVar); addr != "" {
		return addr
	}
	if r.Preferences != nil && r.Preferences.HTTPAddr != "" {
		return r.Preferences.HTTPAddr
	}
	return defaultPreferences().HTTPAddr
}
