package socket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHub(t *testing.T, hub *Hub, userID string) (*websocket.Conn, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(userID, conn)
		close(registered)
		defer func() {
			hub.Unregister(userID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
	}

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestNotifyDeliversJSON(t *testing.T) {
	hub := NewHub()
	conn, cleanup := serveHub(t, hub, "farmer-1")
	defer cleanup()

	assert.True(t, hub.Connected("farmer-1"))
	hub.Notify("farmer-1", map[string]string{"type": "pest.detected"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pest.detected"}`, string(msg))
}

func TestSendToOfflineUserIsNoop(t *testing.T) {
	hub := NewHub()
	assert.NoError(t, hub.Send("nobody", []byte("hi")))
	assert.NoError(t, hub.Ping("nobody"))
	assert.False(t, hub.Connected("nobody"))
}

func TestUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn, cleanup := serveHub(t, hub, "agent-1")
	defer cleanup()

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return !hub.Connected("agent-1") }, 2*time.Second, 10*time.Millisecond)
}
