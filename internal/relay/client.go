package relay

import (
	"time"

	"github.com/BioHazard786/huddle/internal/room"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers fit comfortably.
	maxMessageSize = 64 * 1024

	sendBuffer = 64
)

// endpoint receives what a client reads and learns when it goes away.
type endpoint interface {
	deliver(msg *Message)
	leave(c *Client)
}

// Client is one websocket connection to the hub or the broker.
type Client struct {
	endpoint endpoint
	conn     *websocket.Conn

	// Send is drained by WritePump; closing it closes the connection.
	Send chan *signaling.Message

	// Member state, owned by the hub loop (or the broker lock).
	ID       string
	Name     string
	RoomID   string
	Status   room.Status
	joinedAt time.Time
	limiter  *rate.Limiter
}

func newClient(ep endpoint, conn *websocket.Conn) *Client {
	return &Client{
		endpoint: ep,
		conn:     conn,
		Send:     make(chan *signaling.Message, sendBuffer),
	}
}

func (c *Client) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// ReadPump pumps messages from the websocket connection to the endpoint.
// There is at most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.endpoint.leave(c)
		c.conn.Close()
	}()

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
				log.Warn().Str("module", "relay").Str("remote", c.remoteAddr()).Err(err).Msg("read failed")
			}
			return
		}

		msg.client = c
		c.endpoint.deliver(&msg)
	}
}

// WritePump pumps messages from Send to the websocket connection. There is
// at most one writer per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				log.Debug().Str("module", "relay").Str("remote", c.remoteAddr()).Err(err).Msg("write failed")
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

// trySend queues msg without blocking. A client that cannot keep up loses
// the message.
func (c *Client) trySend(msg *signaling.Message) bool {
	select {
	case c.Send <- msg:
		return true
	default:
		log.Warn().Str("module", "relay").Str("client", c.ID).Str("type", msg.Type).Msg("send buffer full, dropping message")
		return false
	}
}

func errorMessage(text string) *signaling.Message {
	return &signaling.Message{
		Type:    signaling.MessageTypeError,
		Payload: signaling.ErrorPayload{Error: text},
	}
}
