package peer

import (
	"sync"
	"testing"
	"time"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker is an in-memory broker connection. Sent messages are handed to
// route, which may deliver them to another fakeBroker.
type fakeBroker struct {
	id       string
	incoming chan *signaling.Message
	route    func(from *fakeBroker, msg *signaling.Message)

	mu     sync.Mutex
	sent   []*signaling.Message
	closed bool
}

func newFakeBroker(id string) *fakeBroker {
	return &fakeBroker{id: id, incoming: make(chan *signaling.Message, 64)}
}

func (b *fakeBroker) SendMessage(msg *signaling.Message) error {
	b.mu.Lock()
	b.sent = append(b.sent, msg)
	route := b.route
	b.mu.Unlock()
	if route != nil {
		route(b, msg)
	}
	return nil
}

func (b *fakeBroker) Incoming() <-chan *signaling.Message { return b.incoming }

func (b *fakeBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.incoming)
	}
}

func (b *fakeBroker) deliver(msg *signaling.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.incoming <- msg
	}
}

func (b *fakeBroker) sentTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.sent))
	for _, m := range b.sent {
		types = append(types, m.Type)
	}
	return types
}

// connect wires two brokers so that signals addressed by id reach the other
// side stamped with the sender's id, the way the relay's broker does.
func connect(a, b *fakeBroker) {
	byID := map[string]*fakeBroker{a.id: a, b.id: b}
	route := func(from *fakeBroker, msg *signaling.Message) {
		sig, ok := msg.Payload.(signaling.PeerSignal)
		if !ok {
			return
		}
		sig.Src = from.id
		if dst := byID[sig.Dst]; dst != nil {
			dst.deliver(&signaling.Message{Type: msg.Type, Payload: sig})
		}
	}
	a.route, b.route = route, route
}

func nextEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for peer event")
		return nil
	}
}

func cameraStream(t *testing.T) *media.Stream {
	t.Helper()
	audio, err := media.NewLocalTrack(media.KindAudio, media.CodecOpus, "cam", nil)
	require.NoError(t, err)
	video, err := media.NewLocalTrack(media.KindVideo, media.CodecVP8, "cam", nil)
	require.NoError(t, err)
	return media.NewStreamWithID("cam", audio, video)
}

func TestManager_OpenAssignsIdentity(t *testing.T) {
	b := newFakeBroker("alice")
	m := newManager(b, webrtc.Configuration{})
	defer m.Close()

	b.deliver(&signaling.Message{Type: signaling.MessageTypeOpen, Payload: signaling.OpenPayload{ID: "alice"}})

	ev := nextEvent(t, m)
	assert.Equal(t, Open{ID: "alice"}, ev)
	assert.Equal(t, "alice", m.ID())
}

func TestManager_ServerErrorAndDisconnect(t *testing.T) {
	b := newFakeBroker("alice")
	m := newManager(b, webrtc.Configuration{})
	defer m.Close()

	b.deliver(&signaling.Message{Type: signaling.MessageTypeError, Payload: signaling.ErrorPayload{Error: "boom"}})
	ev := nextEvent(t, m)
	perr, ok := ev.(Error)
	require.True(t, ok)
	assert.Equal(t, ErrorServer, perr.Kind)
	assert.EqualError(t, perr.Err, "boom")

	b.Close()
	ev = nextEvent(t, m)
	perr, ok = ev.(Error)
	require.True(t, ok)
	assert.Equal(t, ErrorDisconnected, perr.Kind)
}

func TestManager_CallAnswerAndReplace(t *testing.T) {
	ab, bb := newFakeBroker("alice"), newFakeBroker("bob")
	connect(ab, bb)

	alice := newManager(ab, webrtc.Configuration{})
	defer alice.Close()
	bob := newManager(bb, webrtc.Configuration{})
	defer bob.Close()

	out, err := alice.Call("bob", cameraStream(t))
	require.NoError(t, err)
	assert.Equal(t, "bob", out.RemoteID())

	ev := nextEvent(t, bob)
	incoming, ok := ev.(IncomingCall)
	require.True(t, ok, "expected IncomingCall, got %T", ev)
	assert.Equal(t, "alice", incoming.Call.RemoteID())

	require.NoError(t, incoming.Call.Answer(cameraStream(t)))
	assert.Error(t, incoming.Call.Answer(cameraStream(t)), "a call is answered once")

	require.Eventually(t, func() bool {
		call := out.(*Call)
		call.mu.Lock()
		defer call.mu.Unlock()
		return call.remoteSet
	}, 5*time.Second, 10*time.Millisecond)

	screen, err := media.NewLocalTrack(media.KindVideo, media.CodecVP8, "screen", nil)
	require.NoError(t, err)
	assert.NoError(t, out.ReplaceVideoTrack(screen))
	assert.NoError(t, out.ReplaceVideoTrack(nil))

	assert.Contains(t, ab.sentTypes(), signaling.MessageTypeOffer)
	assert.Contains(t, bb.sentTypes(), signaling.MessageTypeAnswer)
}

func TestManager_LocalCloseEmitsCallClosed(t *testing.T) {
	b := newFakeBroker("alice")
	m := newManager(b, webrtc.Configuration{})
	defer m.Close()

	call, err := m.Call("bob", cameraStream(t))
	require.NoError(t, err)

	require.NoError(t, call.Close())
	require.NoError(t, call.Close())

	ev := nextEvent(t, m)
	closed, ok := ev.(CallClosed)
	require.True(t, ok, "expected CallClosed, got %T", ev)
	assert.Same(t, call, closed.Call)
	assert.Nil(t, m.lookup(call.(*Call).connectionID))
}

func TestManager_ExpireClosesCall(t *testing.T) {
	b := newFakeBroker("alice")
	m := newManager(b, webrtc.Configuration{})
	defer m.Close()

	call, err := m.Call("ghost", cameraStream(t))
	require.NoError(t, err)

	b.deliver(&signaling.Message{Type: signaling.MessageTypeExpire, Payload: signaling.ExpirePayload{
		Dst:          "ghost",
		ConnectionID: call.(*Call).connectionID,
	}})

	ev := nextEvent(t, m)
	perr, ok := ev.(Error)
	require.True(t, ok, "expected Error, got %T", ev)
	assert.Equal(t, ErrorPeerUnavailable, perr.Kind)
	assert.Equal(t, "ghost", perr.PeerID)

	ev = nextEvent(t, m)
	_, ok = ev.(CallClosed)
	assert.True(t, ok, "expected CallClosed, got %T", ev)
}

func TestManager_CallAfterCloseFails(t *testing.T) {
	m := newManager(newFakeBroker("alice"), webrtc.Configuration{})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.Call("bob", cameraStream(t))
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestControlMessages(t *testing.T) {
	data, err := encodeControl(controlHello, helloPayload{ID: "alice", Client: "huddle"})
	require.NoError(t, err)

	msg, err := decodeControl(data)
	require.NoError(t, err)
	assert.Equal(t, controlHello, msg.Type)

	var hello helloPayload
	require.NoError(t, msg.decodePayload(&hello))
	assert.Equal(t, "alice", hello.ID)

	data, err = encodeControl(controlHangup, nil)
	require.NoError(t, err)
	msg, err = decodeControl(data)
	require.NoError(t, err)
	assert.Equal(t, controlHangup, msg.Type)
}
