package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betascale/internal/shared/testutil"
	"betascale/pkg/contracts/events"
)

func TestWritePumpWritesQueuedFrames(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	mock := NewMockConnection()
	client := NewClientWithConnection(hub, mock, "", logger)

	go client.WritePump()

	client.send <- []byte(`{"type":"run:snapshot"}`)
	require.Eventually(t, func() bool { return len(mock.Written()) == 1 },
		2*time.Second, 10*time.Millisecond)

	written := mock.Written()
	assert.JSONEq(t, `{"type":"run:snapshot"}`, string(written[0]))
	assert.Equal(t, websocket.TextMessage, mock.WrittenTypes()[0])

	close(client.send)
	require.Eventually(t, func() bool { return mock.Closed() },
		2*time.Second, 10*time.Millisecond)

	types := mock.WrittenTypes()
	assert.Equal(t, websocket.CloseMessage, types[len(types)-1])
}

func TestReadPumpUnregistersOnClose(t *testing.T) {
	hub := newTestHub(t)
	logger, _ := testutil.NewTestLogger(t)

	mock := NewMockConnection()
	client := NewClientWithConnection(hub, mock, "", logger)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	go client.ReadPump()

	// Heartbeats are consumed without effect.
	mock.QueueIncoming(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))

	mock.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestServeWSEndToEnd(t *testing.T) {
	hub := newTestHub(t)
	logger, _ := testutil.NewTestLogger(t)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ServeWS(hub, conn, "trace-e2e", logger)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "connect", envelope["type"])
	assert.Equal(t, "trace-e2e", envelope["trace_id"])

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	snapshot := events.NewRunSnapshot("run-42")
	snapshot.Status = events.RunStatusCompleted
	hub.BroadcastRunSnapshot(snapshot, "")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "run:snapshot", envelope["type"])

	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-42", data["run_id"])
	assert.Equal(t, "completed", data["status"])
}
