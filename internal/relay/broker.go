package relay

import (
	"errors"
	"sync"

	"github.com/BioHazard786/huddle/internal/metrics"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrStopped is returned by queries against a stopped hub.
var ErrStopped = errors.New("relay stopped")

// Broker assigns each connection a peer identity and forwards offers,
// answers and candidates between identities. It never inspects SDP.
type Broker struct {
	metrics *metrics.Collector

	mu     sync.Mutex
	peers  map[string]*Client
	closed bool
}

func NewBroker(m *metrics.Collector) *Broker {
	return &Broker{metrics: m, peers: make(map[string]*Client)}
}

// Serve assigns conn a fresh identity and starts its pumps.
func (b *Broker) Serve(conn *websocket.Conn) {
	client := newClient(b, conn)
	client.ID = uuid.NewString()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.peers[client.ID] = client
	client.trySend(&signaling.Message{
		Type:    signaling.MessageTypeOpen,
		Payload: signaling.OpenPayload{ID: client.ID},
	})
	b.mu.Unlock()

	b.metrics.RecordPeerConnected()
	log.Debug().Str("module", "broker").Str("peer", client.ID).Msg("peer connected")

	go client.WritePump()
	go client.ReadPump()
}

// Peers returns how many peers are connected.
func (b *Broker) Peers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers)
}

// Close disconnects every peer.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, c := range b.peers {
		delete(b.peers, id)
		close(c.Send)
		b.metrics.RecordPeerDisconnected()
	}
}

func (b *Broker) deliver(msg *Message) {
	src := msg.client

	switch msg.Type {
	case signaling.MessageTypeOffer, signaling.MessageTypeAnswer, signaling.MessageTypeCandidate:
	default:
		log.Debug().Str("module", "broker").Str("type", msg.Type).Msg("unknown message type")
		b.reply(src, errorMessage("Unknown message type: "+msg.Type))
		return
	}

	var sig signaling.PeerSignal
	if err := msg.decode(&sig); err != nil || sig.Dst == "" {
		b.reply(src, errorMessage("Invalid signal"))
		return
	}
	sig.Src = src.ID

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.peers[src.ID] != src {
		return
	}
	dst, ok := b.peers[sig.Dst]
	if !ok {
		b.metrics.RecordSignalExpired()
		log.Debug().Str("module", "broker").Str("src", src.ID).Str("dst", sig.Dst).Msg("signal for unknown peer")
		src.trySend(&signaling.Message{
			Type:    signaling.MessageTypeExpire,
			Payload: signaling.ExpirePayload{Dst: sig.Dst, ConnectionID: sig.ConnectionID},
		})
		return
	}

	b.metrics.RecordSignal(msg.Type)
	dst.trySend(&signaling.Message{Type: msg.Type, Payload: sig})
}

func (b *Broker) reply(c *Client, msg *signaling.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.peers[c.ID] == c {
		c.trySend(msg)
	}
}

func (b *Broker) leave(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.peers[c.ID] != c {
		return
	}
	delete(b.peers, c.ID)
	close(c.Send)
	b.metrics.RecordPeerDisconnected()
	log.Debug().Str("module", "broker").Str("peer", c.ID).Msg("peer disconnected")
}
