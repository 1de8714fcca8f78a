package media

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSource yields nothing and reports io.EOF once closed.
type blockingSource struct {
	done chan struct{}
	once sync.Once
}

func (s *blockingSource) NextSample() (pionmedia.Sample, error) {
	<-s.done
	return pionmedia.Sample{}, io.EOF
}

func (s *blockingSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func TestLocalTrack_ToggleEnabled(t *testing.T) {
	track, err := NewLocalTrack(KindAudio, CodecOpus, "s", nil)
	require.NoError(t, err)

	assert.True(t, track.Enabled())
	track.SetEnabled(false)
	assert.False(t, track.Enabled())
	track.SetEnabled(true)
	assert.True(t, track.Enabled())
	assert.Equal(t, KindAudio, track.Kind())
	assert.NotEmpty(t, track.ID())
	assert.NotNil(t, track.TrackLocal())
}

func TestLocalTrack_SourceExhaustionRunsEndHooks(t *testing.T) {
	src := &blockingSource{done: make(chan struct{})}
	track, err := NewLocalTrack(KindVideo, CodecVP8, "s", src)
	require.NoError(t, err)

	ended := make(chan struct{})
	track.OnEnded(func() { close(ended) })
	src.Close()

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("end hook was not called")
	}
	assert.True(t, track.Ended())
}

func TestLocalTrack_StopDoesNotRunEndHooks(t *testing.T) {
	src := &blockingSource{done: make(chan struct{})}
	track, err := NewLocalTrack(KindVideo, CodecVP8, "s", src)
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	track.OnEnded(func() { called <- struct{}{} })

	track.Stop()
	track.Stop()

	assert.True(t, track.Ended())
	select {
	case <-called:
		t.Fatal("end hook must not run on explicit stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStream_TrackAccessors(t *testing.T) {
	audio, err := NewLocalTrack(KindAudio, CodecOpus, "s", nil)
	require.NoError(t, err)
	video, err := NewLocalTrack(KindVideo, CodecVP8, "s", nil)
	require.NoError(t, err)

	stream := NewStreamWithID("s", audio, video)
	stream.AddTrack(video)

	assert.Equal(t, "s", stream.ID())
	assert.Len(t, stream.Tracks(), 2)
	assert.Same(t, audio, stream.AudioTrack())
	assert.Same(t, video, stream.VideoTrack())

	stream.Stop()
	assert.True(t, audio.Ended())
	assert.True(t, video.Ended())
}

func TestStream_NilIsSafe(t *testing.T) {
	var stream *Stream

	assert.Nil(t, stream.VideoTrack())
	assert.NotPanics(t, stream.Stop)
}

func TestDeviceCapturer_IdleDevices(t *testing.T) {
	c := NewDeviceCapturer(Devices{})

	cam, err := c.Camera(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cam.AudioTrack())
	assert.NotNil(t, cam.VideoTrack())

	screen, err := c.Screen(context.Background())
	require.NoError(t, err)
	assert.Nil(t, screen.AudioTrack())
	assert.NotNil(t, screen.VideoTrack())

	cam.Stop()
	screen.Stop()
}

func TestDeviceCapturer_Failures(t *testing.T) {
	_, err := NewDeviceCapturer(Devices{NoCamera: true}).Camera(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = NewDeviceCapturer(Devices{ScreenBlocked: true}).Screen(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = NewDeviceCapturer(Devices{CameraVideo: "does-not-exist.ivf"}).Camera(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}
