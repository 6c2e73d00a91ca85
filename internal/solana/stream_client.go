// Package solana provides the chain-facing clients: a JSON-RPC HTTP client
// and a websocket program-log stream with reconnect handling.
package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/poggufanz/polymarket-sniper/internal/observability"
)

// ConnState is the stream connection lifecycle state.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateSubscribed
	StateStreaming
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// StreamConfig tunes websocket behavior.
type StreamConfig struct {
	HandshakeTimeout time.Duration
	SubscribeTimeout time.Duration
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Backoff          Backoff
}

// DefaultStreamConfig returns production stream settings.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		Backoff:          DefaultBackoff(),
	}
}

// StreamClient maintains one logsSubscribe subscription for one filter.
// Run drives the connection state machine until the context is cancelled,
// reconnecting and resubscribing with backoff on every transport failure.
type StreamClient struct {
	endpoint string
	filter   LogsFilter
	config   StreamConfig
	log      *log.Logger
	name     string

	state     atomic.Int32
	requestID atomic.Uint64
	out       chan LogNotification
}

// StreamOption configures a StreamClient.
type StreamOption func(*StreamClient)

// WithStreamConfig overrides the default stream configuration.
func WithStreamConfig(cfg StreamConfig) StreamOption {
	return func(c *StreamClient) { c.config = cfg }
}

// WithStreamLogger sets the logger.
func WithStreamLogger(l *log.Logger) StreamOption {
	return func(c *StreamClient) { c.log = l }
}

// WithStreamName labels the client in reconnect metrics.
func WithStreamName(name string) StreamOption {
	return func(c *StreamClient) { c.name = name }
}

// NewStreamClient creates a stream client for one subscription filter.
func NewStreamClient(endpoint string, filter LogsFilter, opts ...StreamOption) *StreamClient {
	c := &StreamClient{
		endpoint: endpoint,
		filter:   filter,
		config:   DefaultStreamConfig(),
		log:      log.Default(),
		name:     "stream",
		out:      make(chan LogNotification, 1024),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notifications returns the channel log notifications are delivered on.
// Closed when Run returns.
func (c *StreamClient) Notifications() <-chan LogNotification {
	return c.out
}

// State returns the current connection state.
func (c *StreamClient) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *StreamClient) setState(s ConnState) {
	c.state.Store(int32(s))
}

// Run connects, subscribes, and streams notifications until ctx is done.
// Transport errors trigger reconnection with exponential backoff; the same
// filter is resubscribed on every new connection.
func (c *StreamClient) Run(ctx context.Context) error {
	defer close(c.out)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err == nil {
			err = c.subscribeAndStream(ctx, conn)
			conn.Close()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setState(StateReconnecting)
		observability.RecordStreamReconnect(c.name)
		delay := c.config.Backoff.Delay(attempt)
		attempt++
		c.log.Printf("[stream] connection lost (%v), reconnecting in %s (attempt %d)", err, delay, attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *StreamClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// subscribeAndStream subscribes with the client's filter and pumps
// notifications until a read error or cancellation.
func (c *StreamClient) subscribeAndStream(ctx context.Context, conn *websocket.Conn) error {
	subID, err := c.subscribe(conn)
	if err != nil {
		return err
	}
	c.setState(StateSubscribed)
	c.log.Printf("[stream] subscribed id=%d mentions=%v", subID, c.filter.Mentions)

	// Ping keeps intermediaries from dropping an idle connection.
	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.pingLoop(conn, stopPing)

	// Unblock ReadMessage when the context is cancelled.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stopPing:
		}
	}()

	c.setState(StateStreaming)
	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		notif, ok := decodeLogsNotification(message)
		if !ok {
			continue
		}

		select {
		case c.out <- notif:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// subscribe sends logsSubscribe and waits for the confirmation carrying the
// subscription id. Non-matching messages received meanwhile are discarded;
// nothing streams before the subscription is confirmed.
func (c *StreamClient) subscribe(conn *websocket.Conn) (int64, error) {
	reqID := c.requestID.Add(1)

	mentions := map[string]interface{}{"all": nil}
	if len(c.filter.Mentions) > 0 {
		mentions = map[string]interface{}{"mentions": c.filter.Mentions}
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": "confirmed"},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(c.config.SubscribeTimeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, message, err := conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("read subscribe response: %w", err)
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err == nil && resp.ID == reqID {
			if resp.Error != nil {
				return 0, fmt.Errorf("subscribe rejected: %s", resp.Error.Message)
			}
			return resp.Result, nil
		}
	}
	return 0, fmt.Errorf("subscribe confirmation timeout after %s", c.config.SubscribeTimeout)
}

func (c *StreamClient) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Reader will observe the dead connection and reconnect.
				return
			}
		}
	}
}

// decodeLogsNotification extracts a LogNotification from a raw ws message.
func decodeLogsNotification(message []byte) (LogNotification, bool) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return LogNotification{}, false
	}
	if notif.Method != "logsNotification" || notif.Params == nil {
		return LogNotification{}, false
	}

	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}
	return out, true
}

// Websocket wire types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      uint64   `json:"id"`
	Result  int64    `json:"result"`
	Error   *wsError `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
