package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thereceipt/parcel-receipt/internal/session"
)

// WebSocket message types
const (
	EventLedger   = "ledger"
	EventStamp    = "stamp"
	EventReset    = "reset"
	EventJob      = "job"
	EventSnapshot = "snapshot"
	EventCommand  = "command"
	EventResponse = "response"
	EventError    = "error"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// WSRequest is a message sent by a client.
type WSRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	clients map[*WSClient]bool
	mu      sync.RWMutex
	lg      *zap.Logger
}

func NewHub(lg *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*WSClient]bool),
		lg:      lg,
	}
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

// remove unregisters c and closes its send channel, ending its write pump.
func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// sendTo queues msg for c. Full buffers drop the message.
func (h *Hub) sendTo(c *WSClient, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.lg.Warn("WebSocket client buffer full, dropping message", zap.String("event", msg.Event))
	}
}

// Broadcast queues msg for every client.
func (h *Hub) Broadcast(msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// BroadcastSession is a session subscriber.
func (h *Hub) BroadcastSession(ev session.Event) {
	h.Broadcast(WSMessage{Event: string(ev.Kind), Data: ev})
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.lg.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
	}
	s.hub.add(client)
	s.lg.Info("WebSocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.lg.Debug("WebSocket write failed", zap.Error(err))
			c.server.hub.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (c *WSClient) readPump() {
	defer func() {
		c.server.hub.remove(c)
		c.server.lg.Info("WebSocket client disconnected")
	}()

	for {
		var msg WSRequest
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.lg.Debug("WebSocket read failed", zap.Error(err))
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSRequest) {
	switch msg.Event {
	case EventSnapshot:
		c.server.hub.sendTo(c, WSMessage{Event: EventSnapshot, Data: c.server.current()})
	case EventCommand:
		var req struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Command == "" {
			c.sendError("command is required")
			return
		}
		result := c.server.executor.Execute(context.Background(), req.Command)
		c.server.hub.sendTo(c, WSMessage{Event: EventResponse, Data: result})
	default:
		c.sendError("unknown event: " + msg.Event)
	}
}

func (c *WSClient) sendError(message string) {
	c.server.hub.sendTo(c, WSMessage{
		Event: EventError,
		Data:  map[string]string{"error": message},
	})
}
