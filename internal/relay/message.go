package relay

import (
	"encoding/json"
	"errors"
)

// Message is an inbound websocket frame. Outbound frames use
// signaling.Message.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	RoomID  string          `json:"room_id,omitempty"`

	// client is the client that sent the message.
	client *Client `json:"-"`
}

var errNoPayload = errors.New("missing payload")

func (m *Message) decode(v any) error {
	if len(m.Payload) == 0 {
		return errNoPayload
	}
	return json.Unmarshal(m.Payload, v)
}
