package signaling

import (
	"github.com/BioHazard786/huddle/internal/room"
	"github.com/rs/zerolog/log"
)

// Event is a decoded relay message.
type Event interface {
	relayEvent()
}

// UserConnected reports a member joining the room.
type UserConnected struct {
	UserID   string
	UserName string
}

// RoomState lists the members present when we joined.
type RoomState struct {
	Members map[string]room.Member
}

// UserStatusUpdate carries a member's changed status fields.
type UserStatusUpdate struct {
	UserID string
	Status room.StatusPatch
}

// UserDisconnected reports a member leaving the room.
type UserDisconnected struct {
	UserID   string
	UserName string
}

// ChatReceived is a chat message from another member.
type ChatReceived struct {
	Message room.ChatMessage
}

// RelayError is an error reported by the server or a frame we could not decode.
type RelayError struct {
	Message string
}

func (UserConnected) relayEvent()    {}
func (RoomState) relayEvent()        {}
func (UserStatusUpdate) relayEvent() {}
func (UserDisconnected) relayEvent() {}
func (ChatReceived) relayEvent()     {}
func (RelayError) relayEvent()       {}

// Handler decodes relay messages into typed events, in delivery order.
type Handler struct {
	client *Client
	events chan Event
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		events: make(chan Event, 64),
	}
}

// Events returns the decoded event stream. It is closed when the connection
// ends.
func (h *Handler) Events() <-chan Event {
	return h.events
}

// Start routes incoming messages until the client's incoming channel closes.
func (h *Handler) Start() {
	defer close(h.events)

	for msg := range h.client.Incoming() {
		ev := h.decode(msg)
		if ev == nil {
			continue
		}
		select {
		case h.events <- ev:
		case <-h.client.done:
			return
		}
	}
}

func (h *Handler) decode(msg *Message) Event {
	switch msg.Type {

	case MessageTypeUserConnected:
		var p UserPayload
		if err := DecodePayload(msg, &p); err != nil {
			return h.malformed(msg, err)
		}
		return UserConnected{UserID: p.UserID, UserName: p.UserName}

	case MessageTypeRoomState:
		var p RoomStatePayload
		if err := DecodePayload(msg, &p); err != nil {
			return h.malformed(msg, err)
		}
		if p.Members == nil {
			p.Members = map[string]room.Member{}
		}
		return RoomState{Members: p.Members}

	case MessageTypeUserStatusUpdate:
		var p StatusUpdatePayload
		if err := DecodePayload(msg, &p); err != nil {
			return h.malformed(msg, err)
		}
		return UserStatusUpdate{UserID: p.UserID, Status: p.Status}

	case MessageTypeUserDisconnected:
		var p UserPayload
		if err := DecodePayload(msg, &p); err != nil {
			return h.malformed(msg, err)
		}
		return UserDisconnected{UserID: p.UserID, UserName: p.UserName}

	case MessageTypeChatMessage:
		var p ChatPayload
		if err := DecodePayload(msg, &p); err != nil {
			return h.malformed(msg, err)
		}
		return ChatReceived{Message: room.ChatMessage{
			Text:       p.Text,
			SenderName: p.SenderName,
			Timestamp:  p.Timestamp,
			IsMine:     false,
		}}

	case MessageTypeError:
		var p ErrorPayload
		if err := DecodePayload(msg, &p); err != nil || p.Error == "" {
			return RelayError{Message: "Unknown error from server"}
		}
		return RelayError{Message: p.Error}

	default:
		log.Debug().Str("module", "signaling").Str("type", msg.Type).Msg("ignoring unknown message")
		return nil
	}
}

func (h *Handler) malformed(msg *Message, err error) Event {
	log.Warn().Str("module", "signaling").Str("type", msg.Type).Err(err).Msg("malformed payload")
	return RelayError{Message: "Failed to parse " + msg.Type + " payload"}
}
