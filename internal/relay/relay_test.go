package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/huddle/internal/metrics"
	"github.com/BioHazard786/huddle/internal/room"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readTimeout = 2 * time.Second

// serveWS starts an httptest server that hands upgraded connections to serve
// and returns its websocket URL.
func serveWS(t *testing.T, serve func(*websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(signaling.Message{Type: msgType, Payload: payload}))
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readAs[T any](t *testing.T, conn *websocket.Conn, wantType string) T {
	t.Helper()
	msg := read(t, conn)
	require.Equal(t, wantType, msg.Type, "payload: %s", msg.Payload)
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

type hubFixture struct {
	hub     *Hub
	url     string
	metrics *metrics.Collector
}

func startHub(t *testing.T, opts HubOptions) hubFixture {
	t.Helper()
	m := metrics.New()
	hub := NewHub(opts, m)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return hubFixture{hub: hub, url: serveWS(t, hub.Serve), metrics: m}
}

func defaultHubOptions() HubOptions {
	return HubOptions{MaxMembers: 8, ChatRate: 100, ChatBurst: 100}
}

func join(t *testing.T, conn *websocket.Conn, roomID, userID, name string, status room.Status) signaling.RoomStatePayload {
	t.Helper()
	send(t, conn, signaling.MessageTypeJoinRoom, signaling.JoinRoomPayload{
		RoomID: roomID, UserID: userID, UserName: name, Status: status,
	})
	return readAs[signaling.RoomStatePayload](t, conn, signaling.MessageTypeRoomState)
}

func TestHub_JoinAnnouncesMembers(t *testing.T) {
	f := startHub(t, defaultHubOptions())
	alice, bob := dial(t, f.url), dial(t, f.url)

	state := join(t, alice, "R", "a", "Alice", room.Status{})
	assert.Empty(t, state.Members)

	state = join(t, bob, "R", "b", "Bob", room.Status{VideoOff: true})
	assert.Equal(t, map[string]room.Member{"a": {Name: "Alice"}}, state.Members)

	connected := readAs[signaling.UserPayload](t, alice, signaling.MessageTypeUserConnected)
	assert.Equal(t, signaling.UserPayload{UserID: "b", UserName: "Bob"}, connected)

	rooms, err := f.hub.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []RoomInfo{{ID: "R", Members: 2}}, rooms)
}

func TestHub_StatusUpdatesMergeAndBroadcast(t *testing.T) {
	f := startHub(t, defaultHubOptions())
	alice, bob := dial(t, f.url), dial(t, f.url)
	join(t, alice, "R", "a", "Alice", room.Status{})
	join(t, bob, "R", "b", "Bob", room.Status{VideoOff: true})
	readAs[signaling.UserPayload](t, alice, signaling.MessageTypeUserConnected)

	send(t, bob, signaling.MessageTypeUpdateStatus, signaling.UpdateStatusPayload{
		Status: room.StatusPatch{Muted: room.Bool(true)},
	})
	update := readAs[signaling.StatusUpdatePayload](t, alice, signaling.MessageTypeUserStatusUpdate)
	assert.Equal(t, "b", update.UserID)
	assert.Equal(t, room.StatusPatch{Muted: room.Bool(true)}, update.Status)

	carol := dial(t, f.url)
	state := join(t, carol, "R", "c", "Carol", room.Status{})
	assert.Equal(t, room.Status{Muted: true, VideoOff: true}, state.Members["b"].Status)
}

func TestHub_ChatGoesToOthersOnly(t *testing.T) {
	f := startHub(t, defaultHubOptions())
	alice, bob := dial(t, f.url), dial(t, f.url)
	join(t, alice, "R", "a", "Alice", room.Status{})
	join(t, bob, "R", "b", "Bob", room.Status{})
	readAs[signaling.UserPayload](t, alice, signaling.MessageTypeUserConnected)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	send(t, alice, signaling.MessageTypeChatMessage, signaling.ChatPayload{Text: "hello", SenderName: "Alice", Timestamp: at})

	chat := readAs[signaling.ChatPayload](t, bob, signaling.MessageTypeChatMessage)
	assert.Equal(t, "hello", chat.Text)
	assert.Equal(t, "Alice", chat.SenderName)
	assert.True(t, at.Equal(chat.Timestamp))

	// The next thing alice sees is bob's status, not her own chat.
	send(t, bob, signaling.MessageTypeUpdateStatus, signaling.UpdateStatusPayload{Status: room.StatusPatch{Muted: room.Bool(true)}})
	readAs[signaling.StatusUpdatePayload](t, alice, signaling.MessageTypeUserStatusUpdate)
}

func TestHub_ChatRateLimited(t *testing.T) {
	f := startHub(t, HubOptions{MaxMembers: 8, ChatRate: 0.001, ChatBurst: 1})
	alice, bob := dial(t, f.url), dial(t, f.url)
	join(t, alice, "R", "a", "Alice", room.Status{})
	join(t, bob, "R", "b", "Bob", room.Status{})

	send(t, bob, signaling.MessageTypeChatMessage, signaling.ChatPayload{Text: "one"})
	send(t, bob, signaling.MessageTypeChatMessage, signaling.ChatPayload{Text: "two"})

	payload := readAs[signaling.ErrorPayload](t, bob, signaling.MessageTypeError)
	assert.Contains(t, payload.Error, "too fast")
}

func TestHub_DisconnectNotifiesAndClosesRoom(t *testing.T) {
	f := startHub(t, defaultHubOptions())
	alice, bob := dial(t, f.url), dial(t, f.url)
	join(t, alice, "R", "a", "Alice", room.Status{})
	join(t, bob, "R", "b", "Bob", room.Status{})
	readAs[signaling.UserPayload](t, alice, signaling.MessageTypeUserConnected)

	bob.Close()
	left := readAs[signaling.UserPayload](t, alice, signaling.MessageTypeUserDisconnected)
	assert.Equal(t, signaling.UserPayload{UserID: "b", UserName: "Bob"}, left)

	alice.Close()
	require.Eventually(t, func() bool {
		rooms, err := f.hub.Rooms(context.Background())
		return err == nil && len(rooms) == 0
	}, readTimeout, 10*time.Millisecond)
}

func TestHub_Rejections(t *testing.T) {
	f := startHub(t, HubOptions{MaxMembers: 1, ChatRate: 1, ChatBurst: 1})
	alice, bob := dial(t, f.url), dial(t, f.url)

	send(t, alice, signaling.MessageTypeUpdateStatus, signaling.UpdateStatusPayload{})
	payload := readAs[signaling.ErrorPayload](t, alice, signaling.MessageTypeError)
	assert.Equal(t, "You must join a room first", payload.Error)

	join(t, alice, "R", "a", "Alice", room.Status{})

	send(t, alice, signaling.MessageTypeJoinRoom, signaling.JoinRoomPayload{RoomID: "S", UserID: "a"})
	payload = readAs[signaling.ErrorPayload](t, alice, signaling.MessageTypeError)
	assert.Equal(t, "Already in a room", payload.Error)

	send(t, bob, signaling.MessageTypeJoinRoom, signaling.JoinRoomPayload{RoomID: "R", UserID: "b"})
	payload = readAs[signaling.ErrorPayload](t, bob, signaling.MessageTypeError)
	assert.Equal(t, "Room is full", payload.Error)

	send(t, bob, "dance", nil)
	payload = readAs[signaling.ErrorPayload](t, bob, signaling.MessageTypeError)
	assert.Equal(t, "Unknown message type: dance", payload.Error)
}

func TestHub_NewRoomIDAvoidsOpenRooms(t *testing.T) {
	f := startHub(t, defaultHubOptions())

	id, err := f.hub.NewRoomID(context.Background())
	require.NoError(t, err)
	assert.Len(t, strings.Split(id, "-"), 3)
}

func TestHub_StoppedRejectsQueries(t *testing.T) {
	hub := NewHub(defaultHubOptions(), metrics.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	_, err := hub.Rooms(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestBroker_RoutesSignals(t *testing.T) {
	broker := NewBroker(metrics.New())
	t.Cleanup(broker.Close)
	url := serveWS(t, broker.Serve)

	alice, bob := dial(t, url), dial(t, url)
	aliceID := readAs[signaling.OpenPayload](t, alice, signaling.MessageTypeOpen).ID
	bobID := readAs[signaling.OpenPayload](t, bob, signaling.MessageTypeOpen).ID
	require.NotEmpty(t, aliceID)
	require.NotEqual(t, aliceID, bobID)
	assert.Equal(t, 2, broker.Peers())

	send(t, alice, signaling.MessageTypeOffer, signaling.PeerSignal{
		Src: "spoofed", Dst: bobID, ConnectionID: "c1", SDP: "v=0",
	})
	offer := readAs[signaling.PeerSignal](t, bob, signaling.MessageTypeOffer)
	assert.Equal(t, signaling.PeerSignal{Src: aliceID, Dst: bobID, ConnectionID: "c1", SDP: "v=0"}, offer)

	send(t, bob, signaling.MessageTypeAnswer, signaling.PeerSignal{Dst: aliceID, ConnectionID: "c1", SDP: "v=1"})
	answer := readAs[signaling.PeerSignal](t, alice, signaling.MessageTypeAnswer)
	assert.Equal(t, bobID, answer.Src)
	assert.Equal(t, "v=1", answer.SDP)
}

func TestBroker_ExpiresUnknownDestination(t *testing.T) {
	broker := NewBroker(metrics.New())
	t.Cleanup(broker.Close)
	url := serveWS(t, broker.Serve)

	alice := dial(t, url)
	readAs[signaling.OpenPayload](t, alice, signaling.MessageTypeOpen)

	send(t, alice, signaling.MessageTypeCandidate, signaling.PeerSignal{Dst: "nobody", ConnectionID: "c9"})
	expire := readAs[signaling.ExpirePayload](t, alice, signaling.MessageTypeExpire)
	assert.Equal(t, signaling.ExpirePayload{Dst: "nobody", ConnectionID: "c9"}, expire)

	send(t, alice, signaling.MessageTypeJoinRoom, nil)
	payload := readAs[signaling.ErrorPayload](t, alice, signaling.MessageTypeError)
	assert.Contains(t, payload.Error, "Unknown message type")
}

func TestBroker_DisconnectForgetsPeer(t *testing.T) {
	broker := NewBroker(metrics.New())
	t.Cleanup(broker.Close)
	url := serveWS(t, broker.Serve)

	alice, bob := dial(t, url), dial(t, url)
	readAs[signaling.OpenPayload](t, alice, signaling.MessageTypeOpen)
	bobID := readAs[signaling.OpenPayload](t, bob, signaling.MessageTypeOpen).ID

	bob.Close()
	require.Eventually(t, func() bool { return broker.Peers() == 1 }, readTimeout, 10*time.Millisecond)

	send(t, alice, signaling.MessageTypeOffer, signaling.PeerSignal{Dst: bobID, ConnectionID: "c1", SDP: "v=0"})
	readAs[signaling.ExpirePayload](t, alice, signaling.MessageTypeExpire)
}
