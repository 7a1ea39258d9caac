package moonraker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Moonraker JSON-RPC methods and notifications used by klipprompt
const (
	MethodIdentify    = "server.connection.identify"
	MethodGCodeScript = "printer.gcode.script"

	NotifyGCodeResponse    = "notify_gcode_response"
	NotifyKlippyReady      = "notify_klippy_ready"
	NotifyKlippyShutdown   = "notify_klippy_shutdown"
	NotifyKlippyDisconnect = "notify_klippy_disconnected"
)

// Request is an outgoing JSON-RPC 2.0 request
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int64  `json:"id"`
}

// Message is any incoming JSON-RPC 2.0 object: a response when ID is set,
// a notification when Method is set.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      *int64          `json:"id,omitempty"`
}

// IsNotification reports whether the message is a server push
func (m *Message) IsNotification() bool {
	return m.ID == nil && m.Method != ""
}

// RPCError is a JSON-RPC error object returned by Moonraker
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("moonraker error %d: %s", e.Code, e.Message)
}

// identifyParams is the payload of server.connection.identify
type identifyParams struct {
	ClientName string `json:"client_name"`
	Version    string `json:"version"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	APIKey     string `json:"api_key,omitempty"`
}

// gcodeLines extracts console lines from a notify_gcode_response payload.
// Moonraker sends a single-element array; a response may span several lines.
func gcodeLines(params json.RawMessage) ([]string, error) {
	var responses []string
	if err := json.Unmarshal(params, &responses); err != nil {
		return nil, fmt.Errorf("invalid %s params: %w", NotifyGCodeResponse, err)
	}

	var lines []string
	for _, r := range responses {
		lines = append(lines, strings.Split(strings.TrimSuffix(r, "\n"), "\n")...)
	}
	return lines, nil
}
