package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	e := echo.New()
	e.GET("/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func subscribedTo(h *Hub, sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.subscriptions[sessionID] {
			return true
		}
	}
	return false
}

func TestHub_PublishOnlyToSubscribers(t *testing.T) {
	hub, url := startHub(t)

	subscribed, _, err := websocket.DefaultDialer.Dial(url+"?sessionId=abc", nil)
	require.NoError(t, err)
	defer subscribed.Close()

	other, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer other.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish("abc", TypeSearchUpdated, map[string]string{"query": "matrix"}))
	require.NoError(t, hub.Broadcast(TypeLocaleChanged, map[string]string{"language": "vi"}))

	msg := readMessage(t, subscribed)
	assert.Equal(t, TypeSearchUpdated, msg.Type)
	assert.Equal(t, "abc", msg.SessionID)

	msg = readMessage(t, subscribed)
	assert.Equal(t, TypeLocaleChanged, msg.Type)

	msg = readMessage(t, other)
	assert.Equal(t, TypeLocaleChanged, msg.Type, "unsubscribed client must only see broadcasts")
}

func TestHub_SubscribeMessage(t *testing.T) {
	hub, url := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "subscribe", "payload": map[string]string{"sessionId": "s1"}}))

	require.Eventually(t, func() bool { return subscribedTo(hub, "s1") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish("s1", TypeDetailUpdated, map[string]int{"id": 1}))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeDetailUpdated, msg.Type)
}

func TestHub_QueueFull(t *testing.T) {
	hub := NewHub(zerolog.Nop()) // not running, nothing drains the queue

	var err error
	for i := 0; i < 300 && err == nil; i++ {
		err = hub.Broadcast(TypeLocaleChanged, i)
	}
	assert.ErrorIs(t, err, ErrHubBusy)
}
