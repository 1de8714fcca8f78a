package session

import (
	"context"
	"errors"
	"strings"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/room"
)

// ToggleMute flips the microphone track. It does nothing without a camera
// stream.
func (s *Session) ToggleMute() error {
	return s.do(func() error {
		if s.state != Joined {
			return ErrNotJoined
		}
		audio := s.local.camera.AudioTrack()
		if audio == nil {
			return nil
		}

		audio.SetEnabled(!audio.Enabled())
		s.local.muted = !audio.Enabled()
		s.broadcast(room.StatusPatch{Muted: room.Bool(s.local.muted)})
		return nil
	})
}

// ToggleVideo flips the camera video track. It does nothing without a camera
// stream.
func (s *Session) ToggleVideo() error {
	return s.do(func() error {
		if s.state != Joined {
			return ErrNotJoined
		}
		video := s.local.camera.VideoTrack()
		if video == nil {
			return nil
		}

		video.SetEnabled(!video.Enabled())
		s.local.videoOff = !video.Enabled()
		s.broadcast(room.StatusPatch{VideoOff: room.Bool(s.local.videoOff)})
		return nil
	})
}

// ToggleScreenShare starts sharing when idle and stops when sharing. Capture
// happens before any call is touched; a failed capture returns a
// ScreenCaptureError and changes nothing.
func (s *Session) ToggleScreenShare(ctx context.Context) error {
	var (
		sharing bool
		epoch   uint64
	)
	if err := s.do(func() error {
		if s.state != Joined {
			return ErrNotJoined
		}
		if s.sharePending {
			return ErrSharePending
		}
		sharing = s.local.screen != nil
		if !sharing {
			s.sharePending = true
		}
		epoch = s.epoch
		return nil
	}); err != nil {
		return err
	}

	if sharing {
		return s.do(func() error {
			s.stopScreenShare()
			return nil
		})
	}

	screen, err := s.opts.Capturer.Screen(ctx)
	if err == nil && screen.VideoTrack() == nil {
		screen.Stop()
		err = errors.New("capture has no video track")
	}
	if err != nil {
		s.do(func() error {
			if s.epoch == epoch {
				s.sharePending = false
			}
			return nil
		})
		serr := newError(KindScreenCapture, "share screen", err)
		s.notifyError(serr)
		return serr
	}

	if err := s.do(func() error {
		if s.epoch != epoch || s.state != Joined {
			return ErrCancelled
		}
		s.sharePending = false
		s.startScreenShare(screen)
		return nil
	}); err != nil {
		screen.Stop()
		return err
	}
	return nil
}

func (s *Session) startScreenShare(screen *media.Stream) {
	track := screen.VideoTrack()

	for _, id := range s.order {
		p := s.participants[id]
		if p.Call == nil {
			continue
		}
		if err := p.Call.ReplaceVideoTrack(track); err != nil {
			s.notifyError(wrapError(KindPeerConnection, "share screen", err, displayName(p.Name, p.ID)))
		}
	}

	s.local.screen = screen
	s.stats.ScreenShares++
	s.broadcast(room.StatusPatch{SharingScreen: room.Bool(true)})

	track.OnEnded(func() {
		s.post(func() {
			if s.local.screen == screen {
				s.log.Info().Msg("screen capture ended")
				s.stopScreenShare()
			}
		})
	})
	if track.Ended() {
		s.stopScreenShare()
	}
}

func (s *Session) stopScreenShare() {
	screen := s.local.screen
	if screen == nil {
		return
	}
	s.local.screen = nil
	screen.Stop()

	camera := s.local.camera.VideoTrack()
	for _, id := range s.order {
		p := s.participants[id]
		if p.Call == nil {
			continue
		}
		if err := p.Call.ReplaceVideoTrack(camera); err != nil {
			s.notifyError(wrapError(KindPeerConnection, "restore camera", err, displayName(p.Name, p.ID)))
		}
	}

	s.broadcast(room.StatusPatch{SharingScreen: room.Bool(false)})
}

// SendChat appends a message to the local log and sends it to the room.
func (s *Session) SendChat(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	return s.do(func() error {
		if s.state != Joined {
			return ErrNotJoined
		}
		msg := room.ChatMessage{
			Text:       text,
			SenderName: s.local.displayName,
			Timestamp:  s.opts.Now(),
			IsMine:     true,
		}
		s.chat = append(s.chat, msg)
		s.stats.MessagesSent++

		if err := s.relay.SendChat(msg.Text, msg.SenderName, msg.Timestamp); err != nil {
			cerr := newError(KindPeerConnection, "send chat", err)
			s.notifyError(cerr)
			return cerr
		}
		return nil
	})
}

func (s *Session) broadcast(patch room.StatusPatch) {
	if s.relay == nil {
		return
	}
	if err := s.relay.UpdateStatus(patch); err != nil {
		s.notifyError(newError(KindPeerConnection, "broadcast status", err))
	}
}
