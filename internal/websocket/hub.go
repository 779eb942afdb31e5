package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Message types pushed to views.
const (
	TypeSearchUpdated = "search:updated"
	TypeDetailUpdated = "detail:updated"
	TypeLocaleChanged = "locale:changed"

	typeSubscribe   = "subscribe"
	typeUnsubscribe = "unsubscribe"
)

// ErrHubBusy is returned when the outbound queue is full and a message was dropped.
var ErrHubBusy = errors.New("websocket hub queue full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type incomingMessage struct {
	client  *Client
	message []byte
}

type outgoing struct {
	session string // empty means every client
	data    []byte
}

// SubscribePayload is the payload of subscribe and unsubscribe messages.
type SubscribePayload struct {
	SessionID string `json:"sessionId"`
}

// Hub manages WebSocket connections. Session updates go only to clients
// subscribed to that session; other messages go to every client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outgoing
	register   chan *Client
	unregister chan *Client
	incoming   chan incomingMessage
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// Client represents a WebSocket connection.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]bool
}

// Message represents a WebSocket message.
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outgoing, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan incomingMessage, 256),
		logger:     logger.With().Str("component", "websocket").Logger(),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if msg.session != "" && !client.subscriptions[msg.session] {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case in := <-h.incoming:
			h.handleIncoming(in)
		}
	}
}

func (h *Hub) handleIncoming(in incomingMessage) {
	var msg struct {
		Type    string           `json:"type"`
		Payload SubscribePayload `json:"payload"`
	}
	if err := json.Unmarshal(in.message, &msg); err != nil || msg.Payload.SessionID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Type {
	case typeSubscribe:
		in.client.subscriptions[msg.Payload.SessionID] = true
	case typeUnsubscribe:
		delete(in.client.subscriptions, msg.Payload.SessionID)
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msgType string, payload interface{}) error {
	return h.enqueue("", msgType, payload)
}

// Publish sends a session update to the clients subscribed to sessionID.
func (h *Hub) Publish(sessionID, msgType string, payload interface{}) error {
	return h.enqueue(sessionID, msgType, payload)
}

func (h *Hub) enqueue(sessionID, msgType string, payload interface{}) error {
	data, err := json.Marshal(Message{
		Type:      msgType,
		SessionID: sessionID,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- outgoing{session: sessionID, data: data}:
		return nil
	default:
		h.logger.Warn().Str("type", msgType).Msg("Dropping websocket message, queue full")
		return ErrHubBusy
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles WebSocket connection upgrade. A sessionId query
// parameter subscribes the connection to that session right away.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: make(map[string]bool),
	}
	if id := c.QueryParam("sessionId"); id != "" {
		client.subscriptions[id] = true
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}
			break
		}

		c.hub.incoming <- incomingMessage{client: c, message: message}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
