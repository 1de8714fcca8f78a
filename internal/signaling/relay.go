package signaling

import (
	"context"
	"time"

	"github.com/BioHazard786/huddle/internal/room"
)

// Relay is the room channel: a connected client plus its event handler.
type Relay struct {
	client  *Client
	handler *Handler
	roomID  string
}

// DialRelay connects to the relay websocket at serverURL for roomID.
func DialRelay(ctx context.Context, serverURL, roomID string) (*Relay, error) {
	client := NewClient(serverURL)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	handler := NewHandler(client)
	go handler.Start()

	return &Relay{client: client, handler: handler, roomID: roomID}, nil
}

// Events returns the relay's decoded events.
func (r *Relay) Events() <-chan Event {
	return r.handler.Events()
}

// JoinRoom announces us to the room.
func (r *Relay) JoinRoom(selfID, displayName string, status room.Status) error {
	return r.client.SendMessage(&Message{
		Type:   MessageTypeJoinRoom,
		RoomID: r.roomID,
		Payload: JoinRoomPayload{
			RoomID:   r.roomID,
			UserID:   selfID,
			UserName: displayName,
			Status:   status,
		},
	})
}

// UpdateStatus broadcasts changed status fields.
func (r *Relay) UpdateStatus(patch room.StatusPatch) error {
	return r.client.SendMessage(&Message{
		Type:    MessageTypeUpdateStatus,
		RoomID:  r.roomID,
		Payload: UpdateStatusPayload{Status: patch},
	})
}

// SendChat broadcasts a chat message to the rest of the room.
func (r *Relay) SendChat(text, senderName string, at time.Time) error {
	return r.client.SendMessage(&Message{
		Type:   MessageTypeChatMessage,
		RoomID: r.roomID,
		Payload: ChatPayload{
			Text:       text,
			SenderName: senderName,
			Timestamp:  at,
		},
	})
}

// Close disconnects from the relay.
func (r *Relay) Close() error {
	r.client.Close()
	return nil
}
