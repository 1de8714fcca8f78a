package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/huddle/internal/room"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame parses raw as a message read off the wire, so payloads arrive as
// generic JSON values.
func frame(t *testing.T, raw string) *Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func TestDecode(t *testing.T) {
	h := NewHandler(NewClient("ws://unused"))
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	muted := true

	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "user connected",
			raw:  `{"type":"user-connected","payload":{"userId":"u2","userName":"Bob"}}`,
			want: UserConnected{UserID: "u2", UserName: "Bob"},
		},
		{
			name: "room state",
			raw:  `{"type":"room-state","payload":{"members":{"u2":{"name":"Bob","status":{"muted":true}}}}}`,
			want: RoomState{Members: map[string]room.Member{"u2": {Name: "Bob", Status: room.Status{Muted: true}}}},
		},
		{
			name: "empty room state",
			raw:  `{"type":"room-state","payload":{}}`,
			want: RoomState{Members: map[string]room.Member{}},
		},
		{
			name: "status update",
			raw:  `{"type":"user-status-update","payload":{"userId":"u2","status":{"muted":true}}}`,
			want: UserStatusUpdate{UserID: "u2", Status: room.StatusPatch{Muted: &muted}},
		},
		{
			name: "user disconnected",
			raw:  `{"type":"user-disconnected","payload":{"userId":"u2","userName":"Bob"}}`,
			want: UserDisconnected{UserID: "u2", UserName: "Bob"},
		},
		{
			name: "chat",
			raw:  `{"type":"chat-message","payload":{"text":"hi","senderName":"Bob","timestamp":"2024-05-01T09:30:00Z"}}`,
			want: ChatReceived{Message: room.ChatMessage{Text: "hi", SenderName: "Bob", Timestamp: at}},
		},
		{
			name: "server error",
			raw:  `{"type":"error","payload":{"error":"Room is full"}}`,
			want: RelayError{Message: "Room is full"},
		},
		{
			name: "error without text",
			raw:  `{"type":"error"}`,
			want: RelayError{Message: "Unknown error from server"},
		},
		{
			name: "malformed payload",
			raw:  `{"type":"user-connected","payload":"nope"}`,
			want: RelayError{Message: "Failed to parse user-connected payload"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.decode(frame(t, tt.raw)))
		})
	}
}

func TestDecode_UnknownTypeIgnored(t *testing.T) {
	h := NewHandler(NewClient("ws://unused"))

	assert.Nil(t, h.decode(frame(t, `{"type":"mystery"}`)))
}

func TestDecodePayload(t *testing.T) {
	msg := frame(t, `{"type":"open","payload":{"id":"p1"}}`)

	var open OpenPayload
	require.NoError(t, DecodePayload(msg, &open))
	assert.Equal(t, "p1", open.ID)
}

// echoServer upgrades one websocket, hands each frame it reads to onFrame and
// writes whatever onFrame returns.
func echoServer(t *testing.T, onFrame func(Message) []Message) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			for _, reply := range onFrame(msg) {
				if err := conn.WriteJSON(reply); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRelay_JoinReceivesRoomState(t *testing.T) {
	received := make(chan Message, 4)
	url := echoServer(t, func(msg Message) []Message {
		received <- msg
		if msg.Type != MessageTypeJoinRoom {
			return nil
		}
		return []Message{{
			Type:    MessageTypeRoomState,
			Payload: RoomStatePayload{Members: map[string]room.Member{"u2": {Name: "Bob"}}},
		}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	relay, err := DialRelay(ctx, url, "standup")
	require.NoError(t, err)
	defer relay.Close()

	require.NoError(t, relay.JoinRoom("u1", "Alice", room.Status{VideoOff: true}))

	select {
	case msg := <-received:
		assert.Equal(t, MessageTypeJoinRoom, msg.Type)
		assert.Equal(t, "standup", msg.RoomID)
		var p JoinRoomPayload
		require.NoError(t, DecodePayload(&msg, &p))
		assert.Equal(t, JoinRoomPayload{RoomID: "standup", UserID: "u1", UserName: "Alice", Status: room.Status{VideoOff: true}}, p)
	case <-ctx.Done():
		t.Fatal("server never saw join-room")
	}

	select {
	case ev := <-relay.Events():
		assert.Equal(t, RoomState{Members: map[string]room.Member{"u2": {Name: "Bob"}}}, ev)
	case <-ctx.Done():
		t.Fatal("no room-state event")
	}
}

func TestRelay_EventsCloseWithConnection(t *testing.T) {
	url := echoServer(t, func(Message) []Message { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	relay, err := DialRelay(ctx, url, "standup")
	require.NoError(t, err)
	require.NoError(t, relay.Close())

	for {
		select {
		case _, ok := <-relay.Events():
			if !ok {
				return
			}
		case <-ctx.Done():
			t.Fatal("events channel never closed")
		}
	}
}

func TestClient_SendAfterClose(t *testing.T) {
	c := NewClient("ws://unused")
	c.Close()
	c.Close()

	assert.ErrorIs(t, c.SendMessage(&Message{Type: MessageTypeChatMessage}), ErrClientClosed)
}

func TestDialRelay_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := DialRelay(ctx, "ws://127.0.0.1:1/ws", "standup")
	assert.Error(t, err)
}
