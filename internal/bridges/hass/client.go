package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Default timeouts and intervals for the hub connection.
const (
	// defaultAuthTimeout is the maximum time for the full
	// connect-and-authenticate handshake.
	defaultAuthTimeout = 10 * time.Second

	// defaultHeartbeatInterval is the liveness probe interval.
	defaultHeartbeatInterval = 30 * time.Second

	// defaultHeartbeatTimeout is how long to wait for a probe reply.
	defaultHeartbeatTimeout = 10 * time.Second

	// defaultReconnectBase is the initial reconnection backoff delay.
	defaultReconnectBase = 1 * time.Second

	// defaultReconnectMax caps the reconnection backoff delay.
	defaultReconnectMax = 30 * time.Second

	// defaultMaxReconnectAttempts limits consecutive reconnections
	// before the client gives up and waits for an explicit Connect.
	defaultMaxReconnectAttempts = 10

	// eventQueueSize is the buffer size of a subscription's event channel.
	// Events beyond a full buffer are dropped, not allowed to stall the reader.
	eventQueueSize = 100
)

// ClientConfig holds hub connection tuning.
type ClientConfig struct {
	AuthTimeout          time.Duration
	HeartbeatInterval    time.Duration
	HeartbeatTimeout     time.Duration
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration
	MaxReconnectAttempts int
}

func (c *ClientConfig) applyDefaults() {
	if c.AuthTimeout == 0 {
		c.AuthTimeout = defaultAuthTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.ReconnectBase == 0 {
		c.ReconnectBase = defaultReconnectBase
	}
	if c.ReconnectMax == 0 {
		c.ReconnectMax = defaultReconnectMax
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// serverMessage is the inbound frame envelope.
type serverMessage struct {
	ID        int64           `json:"id,omitempty"`
	Type      string          `json:"type"`
	Success   *bool           `json:"success,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *serverError    `json:"error,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
	HAVersion string          `json:"ha_version,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// callResult is the outcome of a correlated request.
type callResult struct {
	result json.RawMessage
	err    error
}

type pendingKind int

const (
	pendingCall pendingKind = iota
	pendingSubscription
)

// pendingRequest is one in-flight correlated request. A call resolves
// exactly once through result; a subscription resolves its first ack
// through result and then streams through events until teardown.
// events is nil for callback-only subscriptions.
type pendingRequest struct {
	kind   pendingKind
	result chan callResult
	events chan Event
}

// Client is a Home Assistant WebSocket protocol client.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - A single reader goroutine owns the connection's read side.
//   - Writes serialise through the client mutex, so correlation ids
//     are issued in send order.
//
// Auto-Reconnection:
//   - Transport failures trigger reconnection with exponential backoff
//     until MaxReconnectAttempts consecutive failures.
//   - A rejected token (auth_invalid) is permanent; no reconnection.
type Client struct {
	endpoint string
	token    string
	cfg      ClientConfig

	mu         sync.Mutex
	conn       *websocket.Conn
	connecting bool
	generation uint64
	nextID     int64
	pending    map[int64]*pendingRequest
	authDone   chan error
	closed     bool
	attempts   int

	callbackMu    sync.RWMutex
	onConnect     func()
	onDisconnect  func(error)
	onStateChange func(StateChange)

	logger Logger
}

// NewClient creates a client for the given normalised endpoint and token.
//
// Parameters:
//   - endpoint: Base URL from NormalizeEndpoint, e.g. "http://ha.local:8123"
//   - token: Long-lived access token
//   - cfg: Timing configuration; zero values take defaults
//   - logger: Optional logger; nil disables logging
//
// Returns:
//   - *Client: Client ready for Connect
func NewClient(endpoint, token string, cfg ClientConfig, logger Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		cfg:      cfg,
		pending:  make(map[int64]*pendingRequest),
		logger:   logger,
	}
}

// SetOnConnect registers a callback invoked after each successful
// authentication, including reconnections.
func (c *Client) SetOnConnect(fn func()) {
	c.callbackMu.Lock()
	c.onConnect = fn
	c.callbackMu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the connection is
// lost or closed. The error is nil for an explicit Disconnect.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.callbackMu.Lock()
	c.onDisconnect = fn
	c.callbackMu.Unlock()
}

// SetOnStateChange registers a callback invoked for every decoded
// state_changed event. The callback runs on the reader goroutine and
// must not block.
func (c *Client) SetOnStateChange(fn func(StateChange)) {
	c.callbackMu.Lock()
	c.onStateChange = fn
	c.callbackMu.Unlock()
}

// Connected reports whether the client holds an authenticated connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.authDone == nil
}

// Connect dials the hub and completes the token handshake.
//
// It blocks until auth_ok arrives, the handshake guard expires, or ctx
// is cancelled. ErrAuthenticationFailed is permanent; other failures
// may be retried.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: nil once authenticated
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.closed = false
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	// One deadline covers the dial and the handshake together.
	deadline := time.Now().Add(c.cfg.AuthTimeout)
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	wsURL := websocketURL(c.endpoint)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnectionFailed, wsURL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	c.conn = conn
	c.generation++
	c.nextID = 1
	authDone := make(chan error, 1)
	c.authDone = authDone
	gen := c.generation
	c.mu.Unlock()

	go c.readLoop(conn, gen)

	guard := time.NewTimer(time.Until(deadline))
	defer guard.Stop()

	select {
	case err := <-authDone:
		if err != nil {
			return err
		}
		return nil
	case <-guard.C:
		err := fmt.Errorf("%w: authentication handshake", ErrTimeout)
		c.teardown(gen, err, false)
		return err
	case <-ctx.Done():
		c.teardown(gen, ctx.Err(), false)
		return ctx.Err()
	}
}

// Disconnect closes the connection and fails all pending work with
// ErrNotConnected. It is idempotent and disables reconnection until
// the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.attempts = 0
	gen := c.generation
	c.mu.Unlock()

	c.teardown(gen, nil, false)
}

// readLoop owns the read side of one connection. Every inbound frame
// is routed here: handshake frames drive authentication, result and
// pong frames resolve their pending request, event frames feed their
// subscription channel.
func (c *Client) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.teardown(gen, fmt.Errorf("%w: read: %v", ErrConnectionFailed, err), true)
			return
		}

		switch msg.Type {
		case "auth_required":
			if err := c.writeJSON(gen, map[string]any{
				"type":         "auth",
				"access_token": c.token,
			}); err != nil {
				c.teardown(gen, err, true)
				return
			}

		case "auth_ok":
			c.handleAuthOK(conn, gen, msg.HAVersion)

		case "auth_invalid":
			err := fmt.Errorf("%w: %s", ErrAuthenticationFailed, msg.Message)
			c.teardown(gen, err, false)
			return

		case "result", "pong":
			c.dispatchResult(msg)

		case "event":
			c.dispatchEvent(msg)

		default:
			c.logger.Debug("ignoring unrecognised message", "type", msg.Type)
		}
	}
}

func (c *Client) handleAuthOK(conn *websocket.Conn, gen uint64, version string) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.attempts = 0
	authDone := c.authDone
	c.authDone = nil
	c.mu.Unlock()

	c.logger.Info("authenticated", "ha_version", version)

	if authDone != nil {
		authDone <- nil
	}

	go c.heartbeatLoop(conn, gen)

	c.callbackMu.RLock()
	onConnect := c.onConnect
	c.callbackMu.RUnlock()
	if onConnect != nil {
		c.invokeCallback(func() { onConnect() })
	}
}

// dispatchResult resolves the pending request for a result or pong frame.
// Calls are removed from the registry; subscriptions stay registered for
// their event stream after the first ack.
func (c *Client) dispatchResult(msg serverMessage) {
	var outcome callResult
	if msg.Type == "result" && msg.Success != nil && !*msg.Success {
		detail := "unknown error"
		if msg.Error != nil {
			detail = msg.Error.Message
		}
		outcome.err = fmt.Errorf("%w: %s", ErrServiceCallFailed, detail)
	} else {
		outcome.result = msg.Result
	}

	c.mu.Lock()
	pr, ok := c.pending[msg.ID]
	if ok && pr.kind == pendingCall {
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("reply for unknown request", "id", msg.ID, "type", msg.Type)
		return
	}

	select {
	case pr.result <- outcome:
	default:
	}
}

// dispatchEvent feeds a subscription's event channel and decodes
// state_changed payloads for the state-change callback. A full channel
// drops the event rather than stalling the reader.
func (c *Client) dispatchEvent(msg serverMessage) {
	var ev Event
	if err := json.Unmarshal(msg.Event, &ev); err != nil {
		c.logger.Warn("undecodable event payload", "id", msg.ID, "error", err)
		return
	}

	// The send happens under the mutex: teardown swaps the pending map
	// under the same lock before closing event channels, so a channel
	// found here cannot close before the send.
	dropped := false
	c.mu.Lock()
	pr, ok := c.pending[msg.ID]
	if ok && pr.kind == pendingSubscription && pr.events != nil {
		select {
		case pr.events <- ev:
		default:
			dropped = true
		}
	}
	c.mu.Unlock()

	if dropped {
		c.logger.Warn("event queue full, dropping event", "id", msg.ID, "event_type", ev.EventType)
	}

	if ev.EventType != "state_changed" {
		return
	}

	sc, err := ev.DecodeStateChange()
	if err != nil {
		c.logger.Warn("undecodable state change", "error", err)
		return
	}

	c.callbackMu.RLock()
	onStateChange := c.onStateChange
	c.callbackMu.RUnlock()
	if onStateChange != nil {
		c.invokeCallback(func() { onStateChange(*sc) })
	}
}

// invokeCallback shields the reader goroutine from panicking callbacks.
func (c *Client) invokeCallback(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("callback panic", "panic", r)
		}
	}()
	fn()
}

// writeJSON sends a frame on the current connection. The mutex keeps
// concurrent writers serialised, which gorilla/websocket requires.
func (c *Client) writeJSON(gen uint64, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.generation != gen {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("%w: write: %v", ErrConnectionFailed, err)
	}
	return nil
}

// call issues one correlated request and waits for its reply.
//
// The id is assigned and the frame written under the same lock hold,
// so ids always reach the wire in increasing order.
func (c *Client) call(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	pr := &pendingRequest{kind: pendingCall, result: make(chan callResult, 1)}

	id, err := c.send(payload, pr)
	if err != nil {
		return nil, err
	}

	select {
	case outcome := <-pr.result:
		return outcome.result, outcome.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, payload["type"])
		}
		return nil, ctx.Err()
	}
}

// subscribe issues a subscription request, waits for its ack, and
// returns the ongoing event channel. The channel is closed on teardown.
// Without withEvents no channel is allocated and events reach only the
// registered callbacks.
func (c *Client) subscribe(ctx context.Context, payload map[string]any, withEvents bool) (<-chan Event, error) {
	pr := &pendingRequest{
		kind:   pendingSubscription,
		result: make(chan callResult, 1),
	}
	if withEvents {
		pr.events = make(chan Event, eventQueueSize)
	}

	id, err := c.send(payload, pr)
	if err != nil {
		return nil, err
	}

	select {
	case outcome := <-pr.result:
		if outcome.err != nil {
			c.mu.Lock()
			delete(c.pending, id)
			c.mu.Unlock()
			return nil, outcome.err
		}
		return pr.events, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Client) send(payload map[string]any, pr *pendingRequest) (int64, error) {
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return 0, ErrNotConnected
	}
	id := c.nextID
	c.nextID++
	payload["id"] = id
	c.pending[id] = pr
	err := c.conn.WriteJSON(payload)
	if err != nil {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("%w: write: %v", ErrConnectionFailed, err)
	}
	return id, nil
}

// teardown dismantles one connection exactly once. Pending calls fail
// with ErrNotConnected, subscription channels close, and reconnection
// is scheduled when requested and the client was not explicitly closed.
func (c *Client) teardown(gen uint64, cause error, reconnect bool) {
	c.mu.Lock()
	if c.generation != gen || c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.generation++

	pending := c.pending
	c.pending = make(map[int64]*pendingRequest)

	authDone := c.authDone
	c.authDone = nil

	wasClosed := c.closed
	c.mu.Unlock()

	conn.Close()

	for _, pr := range pending {
		select {
		case pr.result <- callResult{err: ErrNotConnected}:
		default:
		}
		if pr.events != nil {
			close(pr.events)
		}
	}

	if authDone != nil {
		err := cause
		if err == nil {
			err = ErrNotConnected
		}
		authDone <- err
	}

	if cause != nil {
		c.logger.Warn("connection lost", "error", cause)
	}

	c.callbackMu.RLock()
	onDisconnect := c.onDisconnect
	c.callbackMu.RUnlock()
	if onDisconnect != nil {
		c.invokeCallback(func() { onDisconnect(cause) })
	}

	if reconnect && !wasClosed && !errors.Is(cause, ErrAuthenticationFailed) {
		c.scheduleReconnect()
	}
}

// scheduleReconnect arms the next reconnection attempt with
// exponential backoff and jitter.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.logger.Error("reconnection attempts exhausted", "attempts", c.cfg.MaxReconnectAttempts)
		return
	}
	attempt := c.attempts
	c.attempts++
	c.mu.Unlock()

	delay := reconnectDelay(attempt, rand.Float64(), c.cfg.ReconnectBase, c.cfg.ReconnectMax)
	c.logger.Info("scheduling reconnect", "attempt", attempt+1, "delay", delay)

	time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.closed || c.conn != nil {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		err := c.Connect(context.Background())
		switch {
		case err == nil:
		case errors.Is(err, ErrAuthenticationFailed):
			c.logger.Error("reconnect rejected, giving up", "error", err)
		default:
			c.scheduleReconnect()
		}
	})
}

// reconnectDelay computes the backoff delay for one attempt:
// min(base * 2^attempt + jitter seconds, max). jitter is in [0, 1).
func reconnectDelay(attempt int, jitter float64, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	delay += time.Duration(jitter * float64(time.Second))
	if delay > max {
		delay = max
	}
	return delay
}

// heartbeatLoop probes the connection with pings until it goes away.
// A missed reply tears the connection down and triggers reconnection.
func (c *Client) heartbeatLoop(conn *websocket.Conn, gen uint64) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		live := c.conn == conn && c.generation == gen
		c.mu.Unlock()
		if !live {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HeartbeatTimeout)
		_, err := c.call(ctx, map[string]any{"type": "ping"})
		cancel()

		if err != nil {
			c.teardown(gen, fmt.Errorf("%w: heartbeat: %v", ErrTimeout, err), true)
			return
		}
	}
}
