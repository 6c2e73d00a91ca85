package solana

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poggufanz/polymarket-sniper/internal/observability"
)

// wsTestServer confirms logsSubscribe and then runs serve on the connection.
func wsTestServer(t *testing.T, serve func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "logsSubscribe" {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(42),
		})

		serve(conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testStreamConfig() StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.Backoff = Backoff{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond}
	cfg.SubscribeTimeout = 2 * time.Second
	return cfg
}

func notification(sig string, slot int64, logs []string) []byte {
	msg := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]interface{}{
			"subscription": int64(42),
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": slot},
				"value": map[string]interface{}{
					"signature": sig,
					"logs":      logs,
					"err":       nil,
				},
			},
		},
	}
	b, _ := json.Marshal(msg)
	return b
}

func TestStreamDeliversNotifications(t *testing.T) {
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, notification("sig1", 100, []string{"Program log: hello"}))
		conn.WriteMessage(websocket.TextMessage, notification("sig2", 101, []string{"Program log: world"}))
		time.Sleep(time.Second)
	})
	defer srv.Close()

	client := NewStreamClient(wsURL(srv), LogsFilter{Mentions: []string{"Prog111"}},
		WithStreamConfig(testStreamConfig()), WithStreamLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	var got []LogNotification
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case n := <-client.Notifications():
			got = append(got, n)
		case <-timeout:
			t.Fatal("timed out waiting for notifications")
		}
	}

	assert.Equal(t, "sig1", got[0].Signature)
	assert.Equal(t, int64(100), got[0].Slot)
	assert.Equal(t, "sig2", got[1].Signature)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStreamReconnectsAndResubscribes(t *testing.T) {
	var connCount atomic.Int32
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		n := connCount.Add(1)
		if n == 1 {
			// Drop the first connection right after subscribing.
			return
		}
		conn.WriteMessage(websocket.TextMessage, notification("after-reconnect", 200, nil))
		time.Sleep(time.Second)
	})
	defer srv.Close()

	client := NewStreamClient(wsURL(srv), LogsFilter{Mentions: []string{"Prog111"}},
		WithStreamConfig(testStreamConfig()), WithStreamLogger(quietLogger()),
		WithStreamName("reconnect-test"))

	reconnects := observability.DefaultMetrics.StreamReconnects.WithLabelValues("reconnect-test")
	before := testutil.ToFloat64(reconnects)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	select {
	case n := <-client.Notifications():
		assert.Equal(t, "after-reconnect", n.Signature)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after reconnect")
	}

	require.GreaterOrEqual(t, connCount.Load(), int32(2))
	require.GreaterOrEqual(t, testutil.ToFloat64(reconnects)-before, float64(1))
}

func TestDecodeLogsNotificationIgnoresOtherMessages(t *testing.T) {
	_, ok := decodeLogsNotification([]byte(`{"jsonrpc":"2.0","id":1,"result":42}`))
	assert.False(t, ok)

	_, ok = decodeLogsNotification([]byte(`not json`))
	assert.False(t, ok)

	n, ok := decodeLogsNotification(notification("sig", 5, []string{"a"}))
	require.True(t, ok)
	assert.Equal(t, "sig", n.Signature)
	assert.Equal(t, int64(5), n.Slot)
}
