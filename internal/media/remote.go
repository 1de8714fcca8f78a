package media

import (
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

// RemoteTrack is a track received from a peer.
type RemoteTrack struct {
	*trackState

	remote *webrtc.TrackRemote
	bytes  atomic.Uint64
}

// NewRemoteTrack wraps an inbound pion track.
func NewRemoteTrack(remote *webrtc.TrackRemote) *RemoteTrack {
	kind := KindVideo
	if remote.Kind() == webrtc.RTPCodecTypeAudio {
		kind = KindAudio
	}
	return &RemoteTrack{trackState: newTrackState(kind), remote: remote}
}

// Stop marks the track ended locally. The remote side keeps sending until
// the call is closed.
func (t *RemoteTrack) Stop() {
	t.stop()
}

// BytesReceived returns the RTP payload bytes read so far.
func (t *RemoteTrack) BytesReceived() uint64 {
	return t.bytes.Load()
}

// Drain reads RTP packets until the remote track ends, then runs the end
// hooks. It blocks and is meant to run in its own goroutine.
func (t *RemoteTrack) Drain() {
	buf := make([]byte, 1500)
	for {
		n, _, err := t.remote.Read(buf)
		if err != nil {
			t.end()
			return
		}
		t.bytes.Add(uint64(n))
	}
}
