package websocket_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "brokerflow/internal/websocket"
)

func newHubServer(t *testing.T) (*ws.Hub, *httptest.Server) {
	t.Helper()

	hub := ws.NewHub(nil)
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *gorilla.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubRegistersAndCountsClients(t *testing.T) {
	hub, srv := newHubServer(t)

	require.Equal(t, 0, hub.ClientCount())

	dial(t, srv)
	dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish("run-42", 37.5, "processing 20240115")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg ws.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, ws.TypeRunProgress, msg.Type)
	assert.Equal(t, "run-42", msg.RunID)
	assert.Equal(t, 37.5, msg.Percent)
	assert.Equal(t, "processing 20240115", msg.Status)
	assert.False(t, msg.Time.IsZero())
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubStopIsIdempotent(t *testing.T) {
	hub := ws.NewHub(nil)
	hub.Start()
	hub.Stop()
	hub.Stop()
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := ws.NewHub(nil)
	hub.Start()
	defer hub.Stop()

	// Best-effort: no clients means the message is simply dropped.
	hub.Publish("run-1", 50, "halfway")
	assert.Equal(t, 0, hub.ClientCount())
}