package signaling

import (
	"encoding/json"
	"time"

	"github.com/BioHazard786/huddle/internal/room"
	"github.com/pion/webrtc/v4"
)

// Message is the envelope for every websocket frame exchanged with the relay
// and the peer broker.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	RoomID  string `json:"room_id,omitempty"`
}

// Relay message types.
const (
	MessageTypeJoinRoom     = "join-room"
	MessageTypeUpdateStatus = "update-status"
	MessageTypeChatMessage  = "chat-message"

	MessageTypeUserConnected    = "user-connected"
	MessageTypeRoomState        = "room-state"
	MessageTypeUserStatusUpdate = "user-status-update"
	MessageTypeUserDisconnected = "user-disconnected"
	MessageTypeError            = "error"
)

// Peer broker message types.
const (
	MessageTypeOpen      = "open"
	MessageTypeOffer     = "offer"
	MessageTypeAnswer    = "answer"
	MessageTypeCandidate = "candidate"
	MessageTypeExpire    = "expire"
)

// JoinRoomPayload announces the sender to a room.
type JoinRoomPayload struct {
	RoomID   string      `json:"roomId"`
	UserID   string      `json:"userId"`
	UserName string      `json:"userName"`
	Status   room.Status `json:"status"`
}

// UpdateStatusPayload carries the sender's changed status fields.
type UpdateStatusPayload struct {
	Status room.StatusPatch `json:"status"`
}

// ChatPayload is a chat message as sent over the wire.
type ChatPayload struct {
	Text       string    `json:"text"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`
}

// UserPayload identifies a member that connected or disconnected.
type UserPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// RoomStatePayload lists the members already in the room, keyed by identity.
type RoomStatePayload struct {
	Members map[string]room.Member `json:"members"`
}

// StatusUpdatePayload is a status change broadcast for one member.
type StatusUpdatePayload struct {
	UserID string           `json:"userId"`
	Status room.StatusPatch `json:"status"`
}

// ErrorPayload represents error messages from the server.
type ErrorPayload struct {
	Error string `json:"error"`
}

// OpenPayload carries the identity the broker assigned.
type OpenPayload struct {
	ID string `json:"id"`
}

// PeerSignal carries SDP or an ICE candidate between two peers.
type PeerSignal struct {
	Src          string                   `json:"src,omitempty"`
	Dst          string                   `json:"dst"`
	ConnectionID string                   `json:"connectionId"`
	SDP          string                   `json:"sdp,omitempty"`
	Candidate    *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// ExpirePayload reports a signal whose destination is not connected.
type ExpirePayload struct {
	Dst          string `json:"dst"`
	ConnectionID string `json:"connectionId,omitempty"`
}

// DecodePayload re-encodes msg.Payload into v.
func DecodePayload(msg *Message, v any) error {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
