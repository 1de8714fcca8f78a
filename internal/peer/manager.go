package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ErrManagerClosed is returned when calling on a closed manager.
var ErrManagerClosed = errors.New("peer manager closed")

// broker is the signaling connection the manager talks through.
type broker interface {
	SendMessage(msg *signaling.Message) error
	Incoming() <-chan *signaling.Message
	Close()
}

// Manager owns the broker connection and every call made through it.
type Manager struct {
	broker broker
	config webrtc.Configuration

	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	selfID string
	calls  map[string]*Call
	closed bool
}

// Dial connects to the peer broker at brokerURL. The broker assigns our
// identity asynchronously; it is reported as an Open event.
func Dial(ctx context.Context, brokerURL string, config webrtc.Configuration) (*Manager, error) {
	client := signaling.NewClient(brokerURL)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to peer broker: %w", err)
	}
	return newManager(client, config), nil
}

func newManager(b broker, config webrtc.Configuration) *Manager {
	m := &Manager{
		broker: b,
		config: config,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		calls:  make(map[string]*Call),
	}
	go m.listen()
	return m
}

// Events returns the manager's event stream.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// ID returns our broker identity, or "" before Open.
func (m *Manager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selfID
}

// Call places an outbound call to remoteID sending stream's tracks.
func (m *Manager) Call(remoteID string, stream *media.Stream) (Handle, error) {
	call, err := m.newCall(remoteID, uuid.NewString(), true)
	if err != nil {
		return nil, err
	}

	if err := call.attach(stream); err != nil {
		call.Close()
		return nil, err
	}
	if err := call.offer(); err != nil {
		call.Close()
		return nil, err
	}
	return call, nil
}

// Close hangs up every call and disconnects from the broker.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	calls := make([]*Call, 0, len(m.calls))
	for _, c := range m.calls {
		calls = append(calls, c)
	}
	m.mu.Unlock()

	for _, c := range calls {
		c.Close()
	}
	close(m.done)
	m.broker.Close()
	return nil
}

func (m *Manager) newCall(remoteID, connectionID string, outbound bool) (*Call, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.mu.Unlock()

	pc, err := webrtc.NewPeerConnection(m.config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	call := newCall(m, pc, remoteID, connectionID, outbound)

	m.mu.Lock()
	m.calls[connectionID] = call
	m.mu.Unlock()
	return call, nil
}

func (m *Manager) forget(call *Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls[call.connectionID] == call {
		delete(m.calls, call.connectionID)
	}
}

func (m *Manager) lookup(connectionID string) *Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[connectionID]
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

func (m *Manager) send(msgType string, payload signaling.PeerSignal) error {
	return m.broker.SendMessage(&signaling.Message{Type: msgType, Payload: payload})
}

// listen routes broker messages until the connection ends.
func (m *Manager) listen() {
	for msg := range m.broker.Incoming() {
		switch msg.Type {
		case signaling.MessageTypeOpen:
			var p signaling.OpenPayload
			if err := signaling.DecodePayload(msg, &p); err != nil || p.ID == "" {
				m.emit(Error{Kind: ErrorServer, Err: errors.New("malformed open message")})
				continue
			}
			m.mu.Lock()
			m.selfID = p.ID
			m.mu.Unlock()
			log.Debug().Str("module", "peer").Str("id", p.ID).Msg("broker assigned identity")
			m.emit(Open{ID: p.ID})

		case signaling.MessageTypeOffer:
			m.handleOffer(msg)

		case signaling.MessageTypeAnswer:
			m.handleAnswer(msg)

		case signaling.MessageTypeCandidate:
			m.handleCandidate(msg)

		case signaling.MessageTypeExpire:
			var p signaling.ExpirePayload
			if err := signaling.DecodePayload(msg, &p); err != nil {
				continue
			}
			if call := m.lookup(p.ConnectionID); call != nil {
				m.emit(Error{Kind: ErrorPeerUnavailable, PeerID: p.Dst, Err: errors.New("peer is not connected")})
				call.Close()
			}

		case signaling.MessageTypeError:
			var p signaling.ErrorPayload
			signaling.DecodePayload(msg, &p)
			m.emit(Error{Kind: ErrorServer, Err: errors.New(p.Error)})

		default:
			log.Debug().Str("module", "peer").Str("type", msg.Type).Msg("ignoring unknown broker message")
		}
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if !closed {
		m.emit(Error{Kind: ErrorDisconnected, Err: errors.New("lost connection to peer broker")})
	}
}

func (m *Manager) handleOffer(msg *signaling.Message) {
	var p signaling.PeerSignal
	if err := signaling.DecodePayload(msg, &p); err != nil || p.Src == "" || p.SDP == "" {
		log.Warn().Str("module", "peer").Msg("malformed offer")
		return
	}

	call, err := m.newCall(p.Src, p.ConnectionID, false)
	if err != nil {
		m.emit(Error{Kind: ErrorNegotiation, PeerID: p.Src, Err: err})
		return
	}
	call.setOffer(p.SDP)
	m.emit(IncomingCall{Call: call})
}

func (m *Manager) handleAnswer(msg *signaling.Message) {
	var p signaling.PeerSignal
	if err := signaling.DecodePayload(msg, &p); err != nil {
		return
	}
	call := m.lookup(p.ConnectionID)
	if call == nil {
		log.Debug().Str("module", "peer").Str("connection", p.ConnectionID).Msg("answer for unknown call")
		return
	}
	if err := call.acceptAnswer(p.SDP); err != nil {
		m.emit(Error{Kind: ErrorNegotiation, PeerID: call.remoteID, Err: err})
		call.Close()
	}
}

func (m *Manager) handleCandidate(msg *signaling.Message) {
	var p signaling.PeerSignal
	if err := signaling.DecodePayload(msg, &p); err != nil || p.Candidate == nil {
		return
	}
	call := m.lookup(p.ConnectionID)
	if call == nil {
		return
	}
	if err := call.addRemoteCandidate(*p.Candidate); err != nil {
		log.Debug().Str("module", "peer").Str("peer", call.remoteID).Err(err).Msg("add ICE candidate")
	}
}
