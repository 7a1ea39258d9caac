// Package logging provides structured logging for klipprompt.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the client: prompt state transitions, Moonraker
// RPC traffic, connection events, and HTTP presenter requests.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: RPC payloads, ignored console lines, callback bookkeeping
//   - Info: Connections, prompt transitions, presenter requests
//   - Warn: Protocol misuse, out-of-state actions, reconnects
//   - Error: Malformed button arguments, transport failures
//
// # Structured Logging
//
//	logging.Info("Prompt shown",
//	    zap.String("title", "Filament runout"),
//	    zap.Int("contents", 3),
//	)
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// KLIPPROMPT_LOG_LEVEL. The terminal presenter owns stdout, so interactive
// commands should also set KLIPPROMPT_LOG_FILE (or pass an output path):
//
//	if err := logging.Initialize("debug", "/tmp/klipprompt.log"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// should be called before any goroutines start logging.
package logging
