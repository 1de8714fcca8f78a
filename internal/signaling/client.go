package signaling

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/BioHazard786/huddle/internal/dns"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrClientClosed is returned when sending on a closed client.
var ErrClientClosed = errors.New("signaling client closed")

// Client manages one websocket connection to the relay or the peer broker.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *Message
	outgoing  chan *Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new signaling client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *Message, 32),
		outgoing:  make(chan *Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = dns.DialContext

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads messages from the websocket until it fails, then closes
// the incoming channel.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Str("module", "signaling").Str("server", c.serverURL).Err(err).Msg("connection lost")
			}
			return
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the websocket and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				log.Debug().Str("module", "signaling").Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// SendMessage queues msg for the write pump.
func (c *Client) SendMessage(msg *Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-time.After(writeWait):
		return fmt.Errorf("send %s: outgoing queue full", msg.Type)
	}
}

// Incoming returns the channel for receiving messages. It is closed when the
// connection ends.
func (c *Client) Incoming() <-chan *Message {
	return c.incoming
}

// Close closes the websocket connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
