// Package relay is the server side of huddle: the hub that tracks room
// membership and forwards status and chat, and the broker that assigns peer
// identities and routes SDP and ICE between peers.
package relay

import (
	"context"
	"strings"
	"time"

	"github.com/BioHazard786/huddle/internal/metrics"
	"github.com/BioHazard786/huddle/internal/roomid"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// HubOptions limits what members can do.
type HubOptions struct {
	MaxMembers int
	ChatRate   float64
	ChatBurst  int
}

// Hub manages all rooms and their members. Its state is owned by the Run
// goroutine.
type Hub struct {
	opts    HubOptions
	metrics *metrics.Collector

	rooms   map[string]*Room
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	queries    chan func()
	done       chan struct{}
}

// NewHub creates a hub. Call Run to start it.
func NewHub(opts HubOptions, m *metrics.Collector) *Hub {
	return &Hub{
		opts:       opts,
		metrics:    m,
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message),
		queries:    make(chan func()),
		done:       make(chan struct{}),
	}
}

// Serve attaches a websocket connection to the hub.
func (h *Hub) Serve(conn *websocket.Conn) {
	client := newClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) deliver(msg *Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// query runs fn on the hub goroutine.
func (h *Hub) query(ctx context.Context, fn func()) error {
	result := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(result) }:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-result
	return nil
}

// Rooms lists the open rooms.
func (h *Hub) Rooms(ctx context.Context) ([]RoomInfo, error) {
	var out []RoomInfo
	err := h.query(ctx, func() {
		out = make([]RoomInfo, 0, len(h.rooms))
		for _, r := range h.rooms {
			out = append(out, RoomInfo{ID: r.ID, Members: len(r.Members)})
		}
	})
	return out, err
}

// NewRoomID returns a memorable room name that is not in use.
func (h *Hub) NewRoomID(ctx context.Context) (string, error) {
	var id string
	err := h.query(ctx, func() {
		id = roomid.Generate(func(candidate string) bool {
			_, ok := h.rooms[candidate]
			return ok
		})
	})
	return id, err
}

// Run processes registrations and messages until ctx is cancelled. On return
// every connection has been asked to close.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.Send)
		}
		log.Info().Str("module", "relay").Msg("hub stopped")
	}()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Debug().Str("module", "relay").Str("remote", client.remoteAddr()).Msg("client registered")

		case client := <-h.unregister:
			if !h.clients[client] {
				continue
			}
			delete(h.clients, client)
			h.removeMember(client)
			close(client.Send)
			log.Debug().Str("module", "relay").Str("remote", client.remoteAddr()).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.handle(msg)

		case fn := <-h.queries:
			fn()

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(msg *Message) {
	c := msg.client
	h.metrics.RecordMessage(msg.Type)

	switch msg.Type {
	case signaling.MessageTypeJoinRoom:
		h.join(c, msg)

	case signaling.MessageTypeUpdateStatus:
		r := h.memberRoom(c)
		if r == nil {
			return
		}
		var p signaling.UpdateStatusPayload
		if err := msg.decode(&p); err != nil {
			c.trySend(errorMessage("Invalid status update"))
			return
		}
		c.Status = c.Status.Apply(p.Status)
		h.sendOthers(r, c, &signaling.Message{
			Type:    signaling.MessageTypeUserStatusUpdate,
			RoomID:  r.ID,
			Payload: signaling.StatusUpdatePayload{UserID: c.ID, Status: p.Status},
		})

	case signaling.MessageTypeChatMessage:
		r := h.memberRoom(c)
		if r == nil {
			return
		}
		if !c.limiter.Allow() {
			h.metrics.RecordChatRejected()
			c.trySend(errorMessage("You are sending messages too fast"))
			return
		}
		var p signaling.ChatPayload
		if err := msg.decode(&p); err != nil || strings.TrimSpace(p.Text) == "" {
			c.trySend(errorMessage("Invalid chat message"))
			return
		}
		if p.SenderName == "" {
			p.SenderName = c.Name
		}
		if p.Timestamp.IsZero() {
			p.Timestamp = time.Now()
		}
		h.sendOthers(r, c, &signaling.Message{
			Type:    signaling.MessageTypeChatMessage,
			RoomID:  r.ID,
			Payload: p,
		})

	default:
		log.Debug().Str("module", "relay").Str("type", msg.Type).Msg("unknown message type")
		c.trySend(errorMessage("Unknown message type: " + msg.Type))
	}
}

func (h *Hub) join(c *Client, msg *Message) {
	if c.RoomID != "" {
		c.trySend(errorMessage("Already in a room"))
		return
	}

	var p signaling.JoinRoomPayload
	if err := msg.decode(&p); err != nil {
		c.trySend(errorMessage("Invalid join request"))
		return
	}
	roomID := p.RoomID
	if roomID == "" {
		roomID = msg.RoomID
	}
	if roomID == "" || p.UserID == "" {
		c.trySend(errorMessage("Room and user id are required"))
		return
	}

	r, ok := h.rooms[roomID]
	if ok {
		if _, taken := r.Members[p.UserID]; taken {
			c.trySend(errorMessage("User id already in room"))
			return
		}
		if h.opts.MaxMembers > 0 && len(r.Members) >= h.opts.MaxMembers {
			log.Info().Str("module", "relay").Str("room", roomID).Msg("join refused, room is full")
			c.trySend(errorMessage("Room is full"))
			return
		}
	} else {
		r = newRoom(roomID)
		h.rooms[roomID] = r
		h.metrics.RecordRoomOpened()
		log.Info().Str("module", "relay").Str("room", roomID).Msg("room opened")
	}

	c.ID, c.Name, c.RoomID, c.Status = p.UserID, p.UserName, roomID, p.Status
	c.joinedAt = time.Now()
	c.limiter = rate.NewLimiter(rate.Limit(h.opts.ChatRate), h.opts.ChatBurst)

	c.trySend(&signaling.Message{
		Type:    signaling.MessageTypeRoomState,
		RoomID:  roomID,
		Payload: signaling.RoomStatePayload{Members: r.state(c.ID)},
	})
	h.sendOthers(r, c, &signaling.Message{
		Type:    signaling.MessageTypeUserConnected,
		RoomID:  roomID,
		Payload: signaling.UserPayload{UserID: c.ID, UserName: c.Name},
	})

	r.Members[c.ID] = c
	h.metrics.RecordMemberJoined()
	log.Info().Str("module", "relay").Str("room", roomID).Str("user", c.ID).Int("members", len(r.Members)).Msg("member joined")
}

func (h *Hub) removeMember(c *Client) {
	r, ok := h.rooms[c.RoomID]
	if !ok || r.Members[c.ID] != c {
		return
	}

	delete(r.Members, c.ID)
	h.metrics.RecordMemberLeft(c.joinedAt)
	log.Info().Str("module", "relay").Str("room", r.ID).Str("user", c.ID).Msg("member left")

	if len(r.Members) == 0 {
		delete(h.rooms, r.ID)
		h.metrics.RecordRoomClosed()
		log.Info().Str("module", "relay").Str("room", r.ID).Msg("room closed")
		return
	}

	h.sendOthers(r, c, &signaling.Message{
		Type:    signaling.MessageTypeUserDisconnected,
		RoomID:  r.ID,
		Payload: signaling.UserPayload{UserID: c.ID, UserName: c.Name},
	})
}

// memberRoom returns c's room, replying with an error when c has not joined.
func (h *Hub) memberRoom(c *Client) *Room {
	if r, ok := h.rooms[c.RoomID]; ok && r.Members[c.ID] == c {
		return r
	}
	c.trySend(errorMessage("You must join a room first"))
	return nil
}

func (h *Hub) sendOthers(r *Room, from *Client, msg *signaling.Message) {
	for _, member := range r.others(from) {
		member.trySend(msg)
	}
}
