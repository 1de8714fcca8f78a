package session

import (
	"context"
	"errors"
	"strings"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/peer"
)

// Join captures the camera and connects to the relay and the peer broker.
// It returns once the session is Connecting; it becomes Joined when the
// broker assigns our identity. A capture failure returns a MediaAccessError
// and leaves the session Idle.
func (s *Session) Join(ctx context.Context, displayName string) error {
	displayName = strings.TrimSpace(displayName)

	var epoch uint64
	if err := s.do(func() error {
		if s.state != Idle || s.joining {
			return ErrAlreadyJoined
		}
		s.joining = true
		epoch = s.epoch
		return nil
	}); err != nil {
		return err
	}

	camera, err := s.opts.Capturer.Camera(ctx)
	if err != nil {
		s.do(func() error {
			if s.epoch == epoch {
				s.joining = false
			}
			return nil
		})
		merr := newError(KindMediaAccess, "capture camera", err)
		s.notifyError(merr)
		return merr
	}

	if err := s.do(func() error {
		if s.epoch != epoch {
			return ErrCancelled
		}
		s.enterConnecting(displayName, camera)
		return nil
	}); err != nil {
		camera.Stop()
		return err
	}

	relay, err := s.opts.DialRelay(ctx)
	if err != nil {
		return s.abortJoin(epoch, wrapError(KindPeerConnection, "connect to relay", err, s.opts.RoomID))
	}

	peers, err := s.opts.DialPeers(ctx)
	if err != nil {
		relay.Close()
		return s.abortJoin(epoch, newError(KindPeerConnection, "connect to peer broker", err))
	}

	if err := s.do(func() error {
		if s.epoch != epoch || s.state != Connecting {
			return ErrCancelled
		}
		s.relay, s.peers = relay, peers
		s.relayEvents, s.peerEvents = relay.Events(), peers.Events()
		return nil
	}); err != nil {
		peers.Close()
		relay.Close()
		return err
	}
	return nil
}

func (s *Session) enterConnecting(displayName string, camera *media.Stream) {
	s.joining = false
	s.state = Connecting
	s.stats = Stats{}

	if s.opts.StartMuted {
		if audio := camera.AudioTrack(); audio != nil {
			audio.SetEnabled(false)
		}
	}
	if s.opts.StartVideoOff {
		if video := camera.VideoTrack(); video != nil {
			video.SetEnabled(false)
		}
	}

	s.local = localSession{
		displayName: displayName,
		camera:      camera,
		muted:       trackDisabled(camera.AudioTrack()),
		videoOff:    trackDisabled(camera.VideoTrack()),
	}
}

// abortJoin returns a Connecting session to Idle after a failed dial.
func (s *Session) abortJoin(epoch uint64, cause *Error) error {
	err := s.do(func() error {
		if s.epoch != epoch || s.state != Connecting {
			return ErrCancelled
		}
		s.local.camera.Stop()
		s.local = localSession{}
		s.state = Idle
		s.notifyError(cause)
		return nil
	})
	if errors.Is(err, ErrCancelled) || errors.Is(err, ErrClosed) {
		return err
	}
	return cause
}

// Leave tears the session down: media stopped, calls closed, relay and
// broker disconnected, participants and chat cleared. It is idempotent.
func (s *Session) Leave() error {
	err := s.do(func() error {
		s.teardown()
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (s *Session) teardown() {
	// Any capture started before this point must not take effect.
	s.epoch++
	s.joining = false
	s.sharePending = false

	if s.state == Idle {
		return
	}
	s.state = Leaving
	s.log.Info().Msg("leaving room")

	s.local.camera.Stop()
	s.local.screen.Stop()

	for _, id := range s.order {
		if call := s.participants[id].Call; call != nil {
			call.Close()
		}
	}
	if s.peers != nil {
		s.peers.Close()
	}
	if s.relay != nil {
		s.relay.Close()
	}

	s.relay, s.peers = nil, nil
	s.relayEvents, s.peerEvents = nil, nil
	s.participants = make(map[string]*Participant)
	s.order = nil
	s.live = make(map[peer.Handle]bool)
	s.names = make(map[string]string)
	s.chat = nil
	s.local = localSession{}
	s.stats.LeftAt = s.opts.Now()
	s.state = Idle
}

// onOpen completes the join once the broker has assigned our identity.
func (s *Session) onOpen(id string) {
	if s.state != Connecting {
		return
	}

	s.local.selfID = id
	s.state = Joined
	s.stats.JoinedAt = s.opts.Now()
	s.log.Info().Str("id", id).Msg("joined room")

	if err := s.relay.JoinRoom(id, s.local.displayName, s.localStatus()); err != nil {
		s.notifyError(newError(KindPeerConnection, "announce join", err))
	}
}

func (s *Session) relayLost() {
	if s.state == Idle {
		return
	}
	s.notify(LevelError, "lost connection to the room relay", newError(KindPeerConnection, "relay", errors.New("connection closed")))
}

func trackDisabled(t media.Track) bool {
	return t != nil && !t.Enabled()
}
