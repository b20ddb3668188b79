package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fish-tracker/backend/internal/display"
	"github.com/fish-tracker/backend/internal/logging"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected  = "connected"
	MsgTypeViewUpdate = "view:update"
	MsgTypePong       = "pong"
	MsgTypeError      = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorPayload is sent for malformed or unknown client messages.
type WSErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HubConfig tunes the websocket fan-out.
type HubConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	// SendQueue is the per-client backlog; a client that falls further
	// behind is dropped.
	SendQueue int
	// AllowOrigins empty or containing "*" accepts any origin.
	AllowOrigins []string
}

// Hub pushes a view:update to every browser whenever the shared state changes.
type Hub struct {
	store     storage.Reader
	renderer  display.Renderer
	upgrader  websocket.Upgrader
	sendQueue int
	log       *log.Logger

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(store storage.Reader, renderer display.Renderer, cfg HubConfig) *Hub {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 8
	}
	h := &Hub{
		store:      store,
		renderer:   renderer,
		sendQueue:  cfg.SendQueue,
		log:        logging.New("ws"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     originChecker(cfg.AllowOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin.
		return origin == "" || set[origin]
	}
}

// Run owns the client set until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	updates, cancel := h.store.Subscribe()
	defer cancel()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			// Queued here so no broadcast can slip in between.
			client.enqueue(h.viewMessage())
			h.log.Debugf("client registered: %s (%d connected)", client.conn.RemoteAddr(), n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.log.Debugf("client unregistered: %s", client.conn.RemoteAddr())

		case <-updates:
			h.broadcast(h.viewMessage())
		}
	}
}

func (h *Hub) broadcast(msg []byte) {
	if msg == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.enqueue(msg) {
			h.log.Warnf("client %s send queue full, removing", client.conn.RemoteAddr())
			delete(h.clients, client)
			client.close()
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		client.close()
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) viewMessage() []byte {
	v := h.store.View()
	page := h.renderer.Render(v)
	return encodeMessage(MsgTypeViewUpdate, NewViewResponse(v, &page), h.log)
}

// HandleWebSocket upgrades the connection and registers the client; the hub
// sends the current view on registration and streams updates after it.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered.
		return nil
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendQueue+2),
	}
	client.enqueue(encodeMessage(MsgTypeConnected, nil, h.log))

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	client.readPump()
	return nil
}

func encodeMessage(kind string, payload interface{}, l *log.Logger) []byte {
	msg := WSMessage{Type: kind, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			l.Errorf("marshal %s payload: %v", kind, err)
			return nil
		}
		msg.Payload = raw
	}
	data, err := json.Marshal(msg)
	if err != nil {
		l.Errorf("marshal %s message: %v", kind, err)
		return nil
	}
	return data
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue never blocks; it reports false when the queue is full or closed.
func (c *Client) enqueue(msg []byte) bool {
	if msg == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump answers pings until the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnf("read error from %s: %v", c.conn.RemoteAddr(), err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case MsgTypePing:
			c.enqueue(encodeMessage(MsgTypePong, nil, c.hub.log))
		default:
			c.enqueue(encodeMessage(MsgTypeError, WSErrorPayload{
				Message: "Unknown message type: " + msg.Type,
				Code:    "INVALID_TYPE",
			}, c.hub.log))
		}
	}
}

// writePump sends queued messages, one per frame, plus keepalive pings.
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Debugf("write to %s failed: %v", c.conn.RemoteAddr(), err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
