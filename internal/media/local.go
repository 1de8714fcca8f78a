package media

import (
	"errors"
	"io"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// LocalTrack is a captured track that feeds encoded samples from a Source
// into a pion sample track. The same LocalTrack can be attached to any
// number of peer connections.
type LocalTrack struct {
	*trackState

	local  *webrtc.TrackLocalStaticSample
	source Source
}

// NewLocalTrack wraps src in a pion sample track of the given codec and
// starts pacing its samples. A nil src yields an idle track that carries no
// media until stopped.
func NewLocalTrack(kind Kind, codec webrtc.RTPCodecCapability, streamID string, src Source) (*LocalTrack, error) {
	state := newTrackState(kind)
	local, err := webrtc.NewTrackLocalStaticSample(codec, state.id, streamID)
	if err != nil {
		return nil, err
	}

	t := &LocalTrack{trackState: state, local: local, source: src}
	if src != nil {
		go t.pump()
	}
	return t, nil
}

// TrackLocal returns the pion track to attach to a peer connection.
func (t *LocalTrack) TrackLocal() webrtc.TrackLocal {
	return t.local
}

// Stop releases the source. End hooks are not run.
func (t *LocalTrack) Stop() {
	if t.stop() && t.source != nil {
		t.source.Close()
	}
}

func (t *LocalTrack) pump() {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		sample, err := t.source.NextSample()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug().Str("module", "media").Str("track", t.id).Msg("source exhausted")
			} else if !t.Ended() {
				log.Warn().Str("module", "media").Str("track", t.id).Err(err).Msg("source failed")
			}
			t.source.Close()
			t.end()
			return
		}

		select {
		case <-t.stopped:
			return
		case <-timer.C:
		}

		if t.Enabled() {
			if err := t.local.WriteSample(sample); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				log.Debug().Str("module", "media").Str("track", t.id).Err(err).Msg("write sample")
			}
		}
		timer.Reset(sample.Duration)
	}
}
