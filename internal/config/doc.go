// Package config provides user configuration management for klipprompt.
//
// The package manages a YAML registry of known Moonraker instances and
// application preferences, plus environment overrides loaded from the
// process environment or a .env file.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/klipprompt/config.yaml or $HOME/.config/klipprompt/config.yaml
//   - macOS: $HOME/.config/klipprompt/config.yaml
//   - Windows: %LOCALAPPDATA%\klipprompt\config.yaml
//
// # Environment
//
//   - KLIPPROMPT_MOONRAKER_URL overrides the registry when no printer is named
//   - KLIPPROMPT_API_KEY is sent as X-Api-Key; it is never written to disk
//   - KLIPPROMPT_HTTP_ADDR overrides preferences.http_addr
//
// # Usage Example
//
//	_ = config.LoadEnv()
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// "voron" matches a printer keyed "voron-2.4" or nicknamed "Voron"
//	conn, err := registry.ResolveConnection("voron")
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and are atomic.
package config
