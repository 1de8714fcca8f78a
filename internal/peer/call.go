package peer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ErrNoVideoSender is returned when replacing video on a call that never
// negotiated outgoing video.
var ErrNoVideoSender = errors.New("call has no outgoing video")

// Call is one pion peer connection to a remote peer.
type Call struct {
	manager      *Manager
	pc           *webrtc.PeerConnection
	remoteID     string
	connectionID string
	outbound     bool

	mu            sync.Mutex
	videoSender   *webrtc.RTPSender
	remoteStream  *media.Stream
	offerSDP      string
	answered      bool
	remoteSet     bool
	signalSent    bool
	pendingRemote []webrtc.ICECandidateInit
	pendingLocal  []webrtc.ICECandidateInit
	control       *webrtc.DataChannel
	closeOnce     sync.Once
}

func newCall(m *Manager, pc *webrtc.PeerConnection, remoteID, connectionID string, outbound bool) *Call {
	c := &Call{
		manager:      m,
		pc:           pc,
		remoteID:     remoteID,
		connectionID: connectionID,
		outbound:     outbound,
	}

	pc.OnICECandidate(c.onLocalCandidate)
	pc.OnTrack(c.onTrack)
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug().Str("module", "peer").Str("peer", remoteID).Str("state", state.String()).Msg("connection state")
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			c.shutdown(false)
		}
	})

	negotiated := true
	id := uint16(0)
	dc, err := pc.CreateDataChannel(controlLabel, &webrtc.DataChannelInit{Negotiated: &negotiated, ID: &id})
	if err != nil {
		log.Warn().Str("module", "peer").Str("peer", remoteID).Err(err).Msg("create control channel")
	} else {
		c.control = dc
		dc.OnOpen(c.sayHello)
		dc.OnMessage(c.onControl)
	}

	return c
}

// RemoteID is the identity of the peer on the other end.
func (c *Call) RemoteID() string { return c.remoteID }

// Outbound reports whether we placed the call.
func (c *Call) Outbound() bool { return c.outbound }

// attach adds stream's tracks as outgoing media. Missing kinds get a
// transceiver so the remote side can still send them to us and so video can
// be replaced later.
func (c *Call) attach(stream *media.Stream) error {
	audio, video := stream.AudioTrack(), stream.VideoTrack()

	if err := c.addTrack(audio, webrtc.RTPCodecTypeAudio); err != nil {
		return err
	}
	sender, err := c.addTrackSender(video, webrtc.RTPCodecTypeVideo)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.videoSender = sender
	c.mu.Unlock()
	return nil
}

func (c *Call) addTrack(track media.Track, kind webrtc.RTPCodecType) error {
	_, err := c.addTrackSender(track, kind)
	return err
}

func (c *Call) addTrackSender(track media.Track, kind webrtc.RTPCodecType) (*webrtc.RTPSender, error) {
	if local, ok := track.(interface{ TrackLocal() webrtc.TrackLocal }); ok {
		sender, err := c.pc.AddTrack(local.TrackLocal())
		if err != nil {
			return nil, fmt.Errorf("add %s track: %w", kind, err)
		}
		go drainRTCP(sender)
		return sender, nil
	}

	tr, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	})
	if err != nil {
		return nil, fmt.Errorf("add %s transceiver: %w", kind, err)
	}
	return tr.Sender(), nil
}

// offer creates and sends the SDP offer for an outbound call.
func (c *Call) offer() error {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	if err := c.manager.send(signaling.MessageTypeOffer, signaling.PeerSignal{
		Dst:          c.remoteID,
		ConnectionID: c.connectionID,
		SDP:          c.pc.LocalDescription().SDP,
	}); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}
	c.flushLocalCandidates()
	return nil
}

func (c *Call) setOffer(sdp string) {
	c.mu.Lock()
	c.offerSDP = sdp
	c.mu.Unlock()
}

// Answer accepts an inbound call with stream as our outgoing media.
func (c *Call) Answer(stream *media.Stream) error {
	c.mu.Lock()
	if c.outbound || c.answered {
		c.mu.Unlock()
		return errors.New("call cannot be answered")
	}
	c.answered = true
	offerSDP := c.offerSDP
	c.mu.Unlock()

	if err := c.setRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}); err != nil {
		return err
	}
	if err := c.attach(stream); err != nil {
		return err
	}

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	if err := c.manager.send(signaling.MessageTypeAnswer, signaling.PeerSignal{
		Dst:          c.remoteID,
		ConnectionID: c.connectionID,
		SDP:          c.pc.LocalDescription().SDP,
	}); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	c.flushLocalCandidates()
	return nil
}

func (c *Call) acceptAnswer(sdp string) error {
	return c.setRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
}

// setRemote applies the remote description and any candidates that arrived
// before it.
func (c *Call) setRemote(desc webrtc.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	c.mu.Lock()
	c.remoteSet = true
	pending := c.pendingRemote
	c.pendingRemote = nil
	c.mu.Unlock()

	for _, cand := range pending {
		if err := c.pc.AddICECandidate(cand); err != nil {
			log.Debug().Str("module", "peer").Str("peer", c.remoteID).Err(err).Msg("add queued ICE candidate")
		}
	}
	return nil
}

func (c *Call) addRemoteCandidate(cand webrtc.ICECandidateInit) error {
	c.mu.Lock()
	if !c.remoteSet {
		c.pendingRemote = append(c.pendingRemote, cand)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(cand)
}

// onLocalCandidate trickles candidates, holding them until our offer or
// answer has gone out.
func (c *Call) onLocalCandidate(cand *webrtc.ICECandidate) {
	if cand == nil {
		return
	}
	init := cand.ToJSON()

	c.mu.Lock()
	if !c.signalSent {
		c.pendingLocal = append(c.pendingLocal, init)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.sendCandidate(init)
}

func (c *Call) flushLocalCandidates() {
	c.mu.Lock()
	c.signalSent = true
	pending := c.pendingLocal
	c.pendingLocal = nil
	c.mu.Unlock()

	for _, cand := range pending {
		c.sendCandidate(cand)
	}
}

func (c *Call) sendCandidate(cand webrtc.ICECandidateInit) {
	if err := c.manager.send(signaling.MessageTypeCandidate, signaling.PeerSignal{
		Dst:          c.remoteID,
		ConnectionID: c.connectionID,
		Candidate:    &cand,
	}); err != nil {
		log.Debug().Str("module", "peer").Str("peer", c.remoteID).Err(err).Msg("send ICE candidate")
	}
}

func (c *Call) onTrack(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	track := media.NewRemoteTrack(remote)
	go track.Drain()

	c.mu.Lock()
	if c.remoteStream == nil {
		c.remoteStream = media.NewStreamWithID(remote.StreamID())
	}
	stream := c.remoteStream
	c.mu.Unlock()

	stream.AddTrack(track)
	c.manager.emit(CallStream{Call: c, Stream: stream})
}

// ReplaceVideoTrack swaps the outgoing video track in place.
func (c *Call) ReplaceVideoTrack(track media.Track) error {
	c.mu.Lock()
	sender := c.videoSender
	c.mu.Unlock()
	if sender == nil {
		return ErrNoVideoSender
	}

	if track == nil {
		return sender.ReplaceTrack(nil)
	}
	local, ok := track.(interface{ TrackLocal() webrtc.TrackLocal })
	if !ok {
		return fmt.Errorf("track %s cannot be sent", track.ID())
	}
	return sender.ReplaceTrack(local.TrackLocal())
}

// Close hangs up and tells the remote side through the control channel.
func (c *Call) Close() error {
	c.shutdown(true)
	return nil
}

func (c *Call) shutdown(notifyRemote bool) {
	c.closeOnce.Do(func() {
		if notifyRemote && c.control != nil && c.control.ReadyState() == webrtc.DataChannelStateOpen {
			if data, err := encodeControl(controlHangup, nil); err == nil {
				c.control.Send(data)
			}
		}

		c.manager.forget(c)
		go func() {
			if err := c.pc.Close(); err != nil {
				log.Debug().Str("module", "peer").Str("peer", c.remoteID).Err(err).Msg("close peer connection")
			}
		}()

		c.mu.Lock()
		stream := c.remoteStream
		c.mu.Unlock()
		stream.Stop()

		if notifyRemote {
			// Local hang-ups come from the event owner itself; do not block it.
			go c.manager.emit(CallClosed{Call: c})
			return
		}
		c.manager.emit(CallClosed{Call: c})
	})
}

func (c *Call) sayHello() {
	data, err := encodeControl(controlHello, helloPayload{ID: c.manager.ID(), Client: "huddle"})
	if err != nil {
		return
	}
	c.control.Send(data)
}

func (c *Call) onControl(msg webrtc.DataChannelMessage) {
	ctrl, err := decodeControl(msg.Data)
	if err != nil {
		log.Debug().Str("module", "peer").Str("peer", c.remoteID).Err(err).Msg("bad control message")
		return
	}

	switch ctrl.Type {
	case controlHangup:
		c.shutdown(false)
	case controlHello:
		var hello helloPayload
		if err := ctrl.decodePayload(&hello); err == nil {
			log.Debug().Str("module", "peer").Str("peer", hello.ID).Str("client", hello.Client).Msg("control channel open")
		}
	}
}

// drainRTCP reads RTCP for a sender so interceptors keep working.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
