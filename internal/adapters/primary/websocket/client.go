package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/ticket-workflow/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBufferSize = 256
)

// Timing controls the keep-alive of a connection. PingInterval must be less
// than PongWait.
type Timing struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

// DefaultTiming returns the standard keep-alive settings.
func DefaultTiming() Timing {
	return Timing{PingInterval: 54 * time.Second, PongWait: 60 * time.Second}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan domain.Event

	// User ID for this client.
	UserID uuid.UUID

	subscriptions map[uuid.UUID]bool
	timing        Timing
	closeOnce     sync.Once
	mu            sync.RWMutex
	logger        *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, timing Timing, logger *slog.Logger) *Client {
	if timing.PongWait <= 0 || timing.PingInterval <= 0 || timing.PingInterval >= timing.PongWait {
		timing = DefaultTiming()
	}
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan domain.Event, sendBufferSize),
		UserID:        userID,
		subscriptions: make(map[uuid.UUID]bool),
		timing:        timing,
		logger:        logger.With("user_id", userID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *Client) AddSubscription(ticketID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[ticketID] = true
}

func (c *Client) RemoveSubscription(ticketID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, ticketID)
}

// GetSubscriptions returns a copy of all subscriptions
func (c *Client) GetSubscriptions() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]uuid.UUID, 0, len(c.subscriptions))
	for ticketID := range c.subscriptions {
		subs = append(subs, ticketID)
	}
	return subs
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Detach(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timing.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.timing.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// Client message types
const (
	MessageSubscribe   = "SUBSCRIBE_TO_TICKET"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_TICKET"
	MessageFeedOn      = "SUBSCRIBE_TO_FEED"
	MessageFeedOff     = "UNSUBSCRIBE_FROM_FEED"
	MessagePing        = "PING"
)

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload is the payload for subscribe/unsubscribe messages
type SubscribePayload struct {
	TicketID uuid.UUID `json:"ticketId"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageSubscribe, MessageUnsubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.TicketID == uuid.Nil {
			c.logger.Warn("invalid ticket subscription payload", "type", msg.Type, "error", err)
			return
		}
		if msg.Type == MessageSubscribe {
			c.Hub.subscribeClientToTicket(c, p.TicketID)
		} else {
			c.Hub.unsubscribeClientFromTicket(c, p.TicketID)
		}

	case MessageFeedOn:
		c.Hub.setFeed(c, true)

	case MessageFeedOff:
		c.Hub.setFeed(c, false)

	case MessagePing:
		select {
		case c.Send <- domain.Event{Type: "PONG"}:
		default:
		}

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}
