package moonraker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/muurk/klipprompt/internal/logging"
	"github.com/muurk/klipprompt/internal/urls"
	"github.com/muurk/klipprompt/internal/version"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1 << 20

	// DefaultCallTimeout bounds a single JSON-RPC call. G-code scripts block
	// until the firmware has executed them, so this is generous.
	DefaultCallTimeout = 5 * time.Minute

	// DefaultRetryDelay is the initial delay between reconnect attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// APIKeyHeader carries the Moonraker API key on the websocket upgrade
	APIKeyHeader = "X-Api-Key"

	tracerName = "github.com/muurk/klipprompt/internal/moonraker"
)

// ErrNotConnected is returned by calls made while no websocket is open
var ErrNotConnected = errors.New("not connected to moonraker")

// LineHandler receives each console line pushed by Moonraker
type LineHandler func(line string)

// Client is a Moonraker websocket JSON-RPC client. It delivers console
// output to a LineHandler and runs G-code scripts, and implements the
// prompt package's CommandSink.
type Client struct {
	// URL is the websocket endpoint (e.g., "ws://voron.local:7125/websocket")
	URL string

	// APIKey is sent as X-Api-Key and in the identify call when set
	APIKey string

	// ClientName and Version identify this client to Moonraker
	ClientName string
	Version    string

	// Dialer is the websocket dialer
	Dialer *websocket.Dialer

	// CallTimeout bounds each JSON-RPC call
	CallTimeout time.Duration

	// RetryDelay is the initial delay between reconnect attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	nextID atomic.Int64

	// mu protects conn, pending and baseCtx
	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[int64]chan *Message
	baseCtx context.Context

	// writeMu serializes writes; gorilla allows one concurrent writer
	writeMu sync.Mutex

	tracer trace.Tracer
}

// NewClient creates a client for the given Moonraker URL.
// Plain host names and http(s) URLs are accepted and normalized.
func NewClient(rawURL, apiKey string) (*Client, error) {
	wsURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		URL:           wsURL,
		APIKey:        apiKey,
		ClientName:    version.Name,
		Version:       version.Version,
		Dialer:        websocket.DefaultDialer,
		CallTimeout:   DefaultCallTimeout,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		pending:       make(map[int64]chan *Message),
		tracer:        otel.Tracer(tracerName),
	}, nil
}

// NormalizeURL turns "voron.local", "http://voron.local:7125" or a full
// websocket URL into a websocket URL ending in /websocket.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("moonraker URL is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid moonraker URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported moonraker URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("moonraker URL %q has no host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/websocket"
	}
	return u.String(), nil
}

// Run connects and delivers console lines to handler until ctx is cancelled,
// reconnecting with exponential backoff when the connection drops.
func (c *Client) Run(ctx context.Context, handler LineHandler) error {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	delay := c.RetryDelay
	for {
		started := time.Now()
		err := c.runConnection(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A connection that stayed up for a while resets the backoff
		if time.Since(started) > c.MaxRetryDelay {
			delay = c.RetryDelay
		}

		logging.Warn("Moonraker connection lost, reconnecting",
			zap.String("url", c.URL),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > c.MaxRetryDelay {
			delay = c.MaxRetryDelay
		}
	}
}

func (c *Client) runConnection(ctx context.Context, handler LineHandler) error {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if c.APIKey != "" {
		header.Set(APIKeyHeader, c.APIKey)
	}

	conn, resp, err := c.Dialer.DialContext(ctx, c.URL, header)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return fmt.Errorf("moonraker refused the connection (status %d); set %s or trust this host, see %s: %w",
					resp.StatusCode, "KLIPPROMPT_API_KEY", urls.MoonrakerAuthorization, err)
			}
			return fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	logging.LogConnection(c.URL, "connected")

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer c.dropConnection(conn)

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(conn, handler) }()

	go func() {
		if err := c.identify(ctx); err != nil {
			logging.Warn("Moonraker identify failed", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case err := <-readErr:
			return err
		case <-ticker.C:
			if err := c.write(conn, websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.write(conn, websocket.CloseMessage, msg)
			_ = conn.Close()
			<-readErr
			return ctx.Err()
		}
	}
}

func (c *Client) identify(ctx context.Context) error {
	params := identifyParams{
		ClientName: c.ClientName,
		Version:    c.Version,
		Type:       "other",
		URL:        urls.Project,
		APIKey:     c.APIKey,
	}
	_, err := c.Call(ctx, MethodIdentify, params)
	return err
}

// dropConnection closes conn and fails every call still waiting on it.
func (c *Client) dropConnection(conn *websocket.Conn) {
	_ = conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	logging.LogConnection(c.URL, "disconnected")
}

func (c *Client) readLoop(conn *websocket.Conn, handler LineHandler) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn("Ignoring malformed Moonraker message",
				zap.Int("length", len(data)),
				zap.Error(err),
			)
			continue
		}

		if msg.IsNotification() {
			c.handleNotification(&msg, data, handler)
			continue
		}
		if msg.ID == nil {
			continue
		}

		logging.LogRPCMessage("received", "", *msg.ID, data)
		c.mu.Lock()
		ch, ok := c.pending[*msg.ID]
		if ok {
			delete(c.pending, *msg.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- &msg
		}
	}
}

func (c *Client) handleNotification(msg *Message, raw []byte, handler LineHandler) {
	switch msg.Method {
	case NotifyGCodeResponse:
		lines, err := gcodeLines(msg.Params)
		if err != nil {
			logging.Warn("Ignoring gcode response", zap.Error(err))
			return
		}
		logging.LogRPCMessage("received", msg.Method, 0, raw)
		if handler != nil {
			for _, line := range lines {
				handler(line)
			}
		}
	case NotifyKlippyReady, NotifyKlippyShutdown, NotifyKlippyDisconnect:
		logging.Info("Klippy state changed", zap.String("notification", msg.Method))
	default:
		// Status updates and the like are not ours
	}
}

// Call performs a JSON-RPC call and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	tracer := c.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "moonraker "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.RPCSystemKey.String("jsonrpc"),
			semconv.RPCMethodKey.String(method),
		),
	)
	defer span.End()

	result, err := c.call(ctx, span, method, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (c *Client) call(ctx context.Context, span trace.Span, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if c.pending == nil {
		c.pending = make(map[int64]chan *Message)
	}
	id := c.nextID.Add(1)
	ch := make(chan *Message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	span.SetAttributes(attribute.Int64("rpc.jsonrpc.request_id", id))

	data, err := json.Marshal(Request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	if err := c.write(conn, websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}
	logging.LogRPCMessage("sent", method, id, data)

	if c.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.CallTimeout)
		defer cancel()
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: %w", method, ErrNotConnected)
		}
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

func (c *Client) write(conn *websocket.Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}

// RunScript executes G-code through printer.gcode.script and waits for it
// to complete.
func (c *Client) RunScript(ctx context.Context, script string) error {
	_, err := c.Call(ctx, MethodGCodeScript, map[string]string{"script": script})
	return err
}

// Send runs script asynchronously and invokes onAck once the printer has
// executed it. Failures are logged; onAck is not called for them.
func (c *Client) Send(script string, onAck func()) {
	c.mu.Lock()
	ctx := c.baseCtx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		if err := c.RunScript(ctx, script); err != nil {
			logging.Error("G-code script failed",
				zap.String("script", script),
				zap.Error(err),
			)
			return
		}
		if onAck != nil {
			onAck()
		}
	}()
}
