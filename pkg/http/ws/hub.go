package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub manages WebSocket connections and broadcasts messages to session rooms.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection         // conn_id -> connection
	rooms       map[string]map[uuid.UUID]struct{} // room_id -> conn_ids
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		rooms:       make(map[string]map[uuid.UUID]struct{}),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// RegisterConnection adds a connection to the hub.
func (h *Hub) RegisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn.ID] = conn
	h.logger.Debug().Str("conn_id", conn.ID.String()).Msg("connection registered")
}

// UnregisterConnection closes and removes a connection and its room memberships.
func (h *Hub) UnregisterConnection(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[connID]; exists {
		conn.Close()
		delete(h.connections, connID)
		h.logger.Debug().Str("conn_id", connID.String()).Msg("connection unregistered")
	}

	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// JoinRoom subscribes a connection to a room's broadcasts.
func (h *Hub) JoinRoom(roomID string, connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		h.rooms[roomID] = members
	}
	members[connID] = struct{}{}
}

// LeaveRoom unsubscribes a connection from a room.
func (h *Hub) LeaveRoom(roomID string, connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[roomID]
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// CloseRoom drops every subscription for a room. Connections stay open.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}

// InRoom reports whether a connection is subscribed to a room.
func (h *Hub) InRoom(roomID string, connID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][connID]
	return ok
}

// RoomSize reports how many connections are subscribed to a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast queues a message for every connection in a room. Delivery never
// blocks: a full send queue drops the message for that connection only.
func (h *Hub) Broadcast(roomID string, msg Message) error {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		if conn, ok := h.connections[connID]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	var firstErr error
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil {
			h.logger.Warn().Err(err).
				Str("room_id", roomID).
				Str("conn_id", conn.ID.String()).
				Msg("broadcast_send_failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SendTo delivers a message to a single connection.
func (h *Hub) SendTo(connID uuid.UUID, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[connID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}

	return conn.Send(msg)
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	ID     uuid.UUID
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	id := uuid.New()
	return &Connection{
		ID:     id,
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger.With().Str("conn_id", id.String()).Logger(),
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// Outbound exposes the send queue; it is closed when the connection closes.
func (c *Connection) Outbound() <-chan Message {
	return c.sendCh
}

// WritePump sends messages from the send queue and keeps the peer alive with pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
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

// ReadPump receives messages and calls the handler.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
