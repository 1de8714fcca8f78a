package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/room"
	"github.com/BioHazard786/huddle/internal/signaling"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

type joinCall struct {
	SelfID string
	Name   string
	Status room.Status
}

type fakeRelay struct {
	events chan signaling.Event

	mu      sync.Mutex
	joins   []joinCall
	patches []room.StatusPatch
	chats   []string
	closed  bool
	chatErr error
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{events: make(chan signaling.Event, 64)}
}

func (r *fakeRelay) Events() <-chan signaling.Event { return r.events }

func (r *fakeRelay) JoinRoom(selfID, displayName string, status room.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, joinCall{SelfID: selfID, Name: displayName, Status: status})
	return nil
}

func (r *fakeRelay) UpdateStatus(patch room.StatusPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = append(r.patches, patch)
	return nil
}

func (r *fakeRelay) SendChat(text, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, text)
	return r.chatErr
}

func (r *fakeRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRelay) lastPatch() room.StatusPatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.patches) == 0 {
		return room.StatusPatch{}
	}
	return r.patches[len(r.patches)-1]
}

func (r *fakeRelay) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type fakeCall struct {
	remoteID string

	mu        sync.Mutex
	answered  *media.Stream
	video     media.Track
	replaced  int
	closed    bool
	answerErr error
}

func (c *fakeCall) RemoteID() string { return c.remoteID }

func (c *fakeCall) Answer(stream *media.Stream) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answerErr != nil {
		return c.answerErr
	}
	c.answered = stream
	c.video = stream.VideoTrack()
	return nil
}

func (c *fakeCall) ReplaceVideoTrack(track media.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.video = track
	c.replaced++
	return nil
}

func (c *fakeCall) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCall) outgoingVideo() media.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.video
}

func (c *fakeCall) replacements() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaced
}

func (c *fakeCall) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakePeers struct {
	events chan peer.Event

	mu     sync.Mutex
	calls  []*fakeCall
	closed bool
}

func newFakePeers() *fakePeers {
	return &fakePeers{events: make(chan peer.Event, 64)}
}

func (p *fakePeers) Events() <-chan peer.Event { return p.events }

func (p *fakePeers) Call(remoteID string, stream *media.Stream) (peer.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := &fakeCall{remoteID: remoteID, video: stream.VideoTrack()}
	p.calls = append(p.calls, call)
	return call, nil
}

func (p *fakePeers) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeers) placed() []*fakeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*fakeCall(nil), p.calls...)
}

// endableSource yields nothing and reports io.EOF once ended, standing in
// for a capture the operating system stops.
type endableSource struct {
	done chan struct{}
	once sync.Once
}

func newEndableSource() *endableSource {
	return &endableSource{done: make(chan struct{})}
}

func (s *endableSource) NextSample() (pionmedia.Sample, error) {
	<-s.done
	return pionmedia.Sample{}, io.EOF
}

func (s *endableSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type fakeCapturer struct {
	mu         sync.Mutex
	cameraErr  error
	screenErr  error
	cameraGate chan struct{}
	cameras    []*media.Stream
	screens    []*media.Stream
	screenSrc  []*endableSource
}

func (c *fakeCapturer) Camera(ctx context.Context) (*media.Stream, error) {
	c.mu.Lock()
	gate, err := c.cameraGate, c.cameraErr
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	audio, err := media.NewLocalTrack(media.KindAudio, media.CodecOpus, "camera", nil)
	if err != nil {
		return nil, err
	}
	video, err := media.NewLocalTrack(media.KindVideo, media.CodecVP8, "camera", nil)
	if err != nil {
		return nil, err
	}
	stream := media.NewStream(audio, video)

	c.mu.Lock()
	c.cameras = append(c.cameras, stream)
	c.mu.Unlock()
	return stream, nil
}

func (c *fakeCapturer) Screen(context.Context) (*media.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screenErr != nil {
		return nil, c.screenErr
	}

	src := newEndableSource()
	video, err := media.NewLocalTrack(media.KindVideo, media.CodecVP8, "screen", src)
	if err != nil {
		return nil, err
	}
	stream := media.NewStream(video)
	c.screens = append(c.screens, stream)
	c.screenSrc = append(c.screenSrc, src)
	return stream, nil
}

func (c *fakeCapturer) lastCamera() *media.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cameras) == 0 {
		return nil
	}
	return c.cameras[len(c.cameras)-1]
}

func (c *fakeCapturer) lastScreen() (*media.Stream, *endableSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.screens) == 0 {
		return nil, nil
	}
	return c.screens[len(c.screens)-1], c.screenSrc[len(c.screenSrc)-1]
}

var errDenied = errors.New("permission denied")
