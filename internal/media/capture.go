package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

var (
	// ErrNoDevice is returned when the requested capture device is absent.
	ErrNoDevice = errors.New("no capture device available")

	// ErrPermissionDenied is returned when capture is refused.
	ErrPermissionDenied = errors.New("capture permission denied")
)

// Capturer acquires local media.
type Capturer interface {
	// Camera returns a stream holding one audio and one video track.
	Camera(ctx context.Context) (*Stream, error)

	// Screen returns a stream holding one video track.
	Screen(ctx context.Context) (*Stream, error)
}

// Devices describes where local media comes from. Empty paths produce idle
// tracks that negotiate normally but carry no samples.
type Devices struct {
	CameraVideo string
	CameraAudio string
	ScreenVideo string

	NoCamera      bool
	ScreenBlocked bool
}

// DeviceCapturer captures from files on disk. Camera files loop; a screen
// file plays once and its end is reported through the track's end hook,
// the way a user stopping a share from outside the app would.
type DeviceCapturer struct {
	devices Devices
}

func NewDeviceCapturer(devices Devices) *DeviceCapturer {
	return &DeviceCapturer{devices: devices}
}

func (c *DeviceCapturer) Camera(ctx context.Context) (*Stream, error) {
	if c.devices.NoCamera {
		return nil, ErrNoDevice
	}

	streamID := uuid.NewString()
	video, err := openVideo(c.devices.CameraVideo, streamID, true)
	if err != nil {
		return nil, fmt.Errorf("camera video: %w", err)
	}

	audio, err := openAudio(c.devices.CameraAudio, streamID)
	if err != nil {
		video.Stop()
		return nil, fmt.Errorf("camera audio: %w", err)
	}

	if err := ctx.Err(); err != nil {
		video.Stop()
		audio.Stop()
		return nil, err
	}
	return NewStreamWithID(streamID, audio, video), nil
}

func (c *DeviceCapturer) Screen(ctx context.Context) (*Stream, error) {
	if c.devices.ScreenBlocked {
		return nil, ErrPermissionDenied
	}

	streamID := uuid.NewString()
	video, err := openVideo(c.devices.ScreenVideo, streamID, false)
	if err != nil {
		return nil, fmt.Errorf("screen video: %w", err)
	}

	if err := ctx.Err(); err != nil {
		video.Stop()
		return nil, err
	}
	return NewStreamWithID(streamID, video), nil
}

func openVideo(path, streamID string, loop bool) (*LocalTrack, error) {
	if path == "" {
		return NewLocalTrack(KindVideo, CodecVP8, streamID, nil)
	}

	src, codec, err := OpenIVF(path, loop)
	if err != nil {
		return nil, errors.Join(ErrNoDevice, err)
	}
	track, err := NewLocalTrack(KindVideo, codec, streamID, src)
	if err != nil {
		src.Close()
		return nil, err
	}
	return track, nil
}

func openAudio(path, streamID string) (*LocalTrack, error) {
	if path == "" {
		return NewLocalTrack(KindAudio, CodecOpus, streamID, nil)
	}

	src, err := OpenOgg(path, true)
	if err != nil {
		return nil, errors.Join(ErrNoDevice, err)
	}
	track, err := NewLocalTrack(KindAudio, CodecOpus, streamID, src)
	if err != nil {
		src.Close()
		return nil, err
	}
	return track, nil
}

// Compile-time check that local tracks expose a pion track.
var _ interface{ TrackLocal() webrtc.TrackLocal } = (*LocalTrack)(nil)
