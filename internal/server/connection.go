package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	id          string
	conn        *websocket.Conn
	send        chan *Message
	identity    string
	tier        string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	roomService *RoomService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, roomService *RoomService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		roomService: roomService,
	}
}

// ID returns the connection's unique identifier
func (c *Connection) ID() string {
	return c.id
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetIdentity associates this connection with a participant identity
func (c *Connection) SetIdentity(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = identity
}

// GetIdentity returns the associated participant identity
func (c *Connection) GetIdentity() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// SetTier associates this connection with a room tier
func (c *Connection) SetTier(tier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tier = tier
}

// GetTier returns the associated room tier
func (c *Connection) GetTier() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tier
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "identity", c.GetIdentity())

	switch msg.Type {
	case MessageTypeAdmit:
		var data AdmitData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse admit data")
			return
		}
		c.handleAdmit(data)

	case MessageTypeConfirmReady:
		var data ConfirmReadyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse confirm ready data")
			return
		}
		c.handleConfirmReady(data)

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chat data")
			return
		}
		c.handleChat(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) handleAdmit(data AdmitData) {
	c.logger.Info("Admit request", "tier", data.Tier, "identity", data.Identity)

	if c.roomService == nil {
		c.sendError("service_unavailable", "Room service not available")
		return
	}
	if data.Identity == "" {
		c.sendError("invalid_identity", "Identity required")
		return
	}

	err := c.roomService.Admit(c.ctx, data.Tier, data.Identity, data.DisplayName, c.ID())
	if err != nil {
		c.sendError("admit_failed", err.Error())
		return
	}

	participants, summary, ok := c.roomService.Snapshot(data.Tier)
	if !ok {
		// Unknown tier: absorbed silently, the connection stays unbound.
		return
	}

	c.SetIdentity(data.Identity)
	c.SetTier(data.Tier)

	// The admission broadcast fired before this connection was bound to the
	// tier, so hand the current state to the joiner directly.
	if msg, err := NewMessage(MessageTypeParticipantsUpdate, ParticipantsUpdateData{
		Tier:         data.Tier,
		Participants: participants,
	}); err == nil {
		_ = c.SendMessage(msg)
	}
	if msg, err := NewMessage(MessageTypeRoomsSummary, RoomsSummaryData{Rooms: summary}); err == nil {
		_ = c.SendMessage(msg)
	}
}

func (c *Connection) handleConfirmReady(data ConfirmReadyData) {
	c.logger.Info("Confirm ready request", "tier", data.Tier, "identity", data.Identity)

	if c.roomService == nil {
		c.sendError("service_unavailable", "Room service not available")
		return
	}

	// Readiness is only accepted for the identity this connection admitted as
	if data.Identity == "" || data.Identity != c.GetIdentity() {
		c.sendError("invalid_identity", "Readiness must be confirmed by the admitted identity")
		return
	}

	c.roomService.ConfirmReady(data.Tier, data.Identity, data.Proof)
}

func (c *Connection) handleChat(data ChatData) {
	if c.roomService == nil {
		c.sendError("service_unavailable", "Room service not available")
		return
	}

	sender := data.Sender
	if sender == "" {
		sender = c.GetIdentity()
	}
	c.roomService.Chat(data.Tier, sender, data.Message)
}
