package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// Source yields encoded samples. io.EOF ends the track.
type Source interface {
	NextSample() (pionmedia.Sample, error)
	Close() error
}

// Default codecs for idle tracks and file sources.
var (
	CodecVP8  = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	CodecVP9  = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP9, ClockRate: 90000}
	CodecAV1  = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeAV1, ClockRate: 90000}
	CodecOpus = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
)

const oggPageDuration = 20 * time.Millisecond

// fileSource reopens its file on EOF when looping.
type fileSource struct {
	path string
	loop bool

	mu     sync.Mutex
	file   *os.File
	closed bool
	next   func() (pionmedia.Sample, error)
	reopen func(f *os.File) error
}

func (s *fileSource) NextSample() (pionmedia.Sample, error) {
	sample, err := s.next()
	if errors.Is(err, io.EOF) && s.loop {
		if err := s.open(); err != nil {
			return pionmedia.Sample{}, err
		}
		return s.next()
	}
	return sample, err
}

func (s *fileSource) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.EOF
	}
	if s.file != nil {
		s.file.Close()
	}

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	if err := s.reopen(f); err != nil {
		f.Close()
		return err
	}
	s.file = f
	return nil
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// OpenIVF opens an IVF video file and returns a source plus the codec found
// in its header.
func OpenIVF(path string, loop bool) (Source, webrtc.RTPCodecCapability, error) {
	var (
		reader   *ivfreader.IVFReader
		interval time.Duration
		codec    webrtc.RTPCodecCapability
	)

	s := &fileSource{path: path, loop: loop}
	s.reopen = func(f *os.File) error {
		r, header, err := ivfreader.NewWith(f)
		if err != nil {
			return fmt.Errorf("read ivf header: %w", err)
		}
		c, err := codecForFourCC(header.FourCC)
		if err != nil {
			return err
		}
		reader, codec = r, c
		interval = frameInterval(header.TimebaseNumerator, header.TimebaseDenominator)
		return nil
	}
	s.next = func() (pionmedia.Sample, error) {
		frame, _, err := reader.ParseNextFrame()
		if err != nil {
			return pionmedia.Sample{}, err
		}
		return pionmedia.Sample{Data: frame, Duration: interval}, nil
	}

	if err := s.open(); err != nil {
		return nil, webrtc.RTPCodecCapability{}, err
	}
	return s, codec, nil
}

// OpenOgg opens an Ogg/Opus audio file.
func OpenOgg(path string, loop bool) (Source, error) {
	var (
		reader      *oggreader.OggReader
		lastGranule uint64
	)

	s := &fileSource{path: path, loop: loop}
	s.reopen = func(f *os.File) error {
		r, _, err := oggreader.NewWith(f)
		if err != nil {
			return fmt.Errorf("read ogg header: %w", err)
		}
		reader, lastGranule = r, 0
		return nil
	}
	s.next = func() (pionmedia.Sample, error) {
		page, header, err := reader.ParseNextPage()
		if err != nil {
			return pionmedia.Sample{}, err
		}
		duration := oggPageDuration
		if header.GranulePosition > lastGranule {
			samples := header.GranulePosition - lastGranule
			duration = time.Duration(float64(samples) / 48000 * float64(time.Second))
		}
		lastGranule = header.GranulePosition
		return pionmedia.Sample{Data: page, Duration: duration}, nil
	}

	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func codecForFourCC(fourCC string) (webrtc.RTPCodecCapability, error) {
	switch fourCC {
	case "VP80":
		return CodecVP8, nil
	case "VP90":
		return CodecVP9, nil
	case "AV01":
		return CodecAV1, nil
	default:
		return webrtc.RTPCodecCapability{}, fmt.Errorf("unsupported ivf codec %q", fourCC)
	}
}

func frameInterval(numerator, denominator uint32) time.Duration {
	if numerator == 0 || denominator == 0 {
		return time.Second / 30
	}
	return time.Duration(float64(time.Second) * float64(numerator) / float64(denominator))
}
