package media

import (
	"sync"

	"github.com/google/uuid"
)

// Stream groups the tracks produced by one capture or one remote sender.
type Stream struct {
	id string

	mu     sync.RWMutex
	tracks []Track
}

// NewStream returns a stream with a fresh id holding tracks.
func NewStream(tracks ...Track) *Stream {
	return NewStreamWithID(uuid.NewString(), tracks...)
}

// NewStreamWithID returns a stream with the given id.
func NewStreamWithID(id string, tracks ...Track) *Stream {
	return &Stream{id: id, tracks: tracks}
}

func (s *Stream) ID() string { return s.id }

// AddTrack appends t unless a track with the same id is already present.
func (s *Stream) AddTrack(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tracks {
		if existing.ID() == t.ID() {
			return
		}
	}
	s.tracks = append(s.tracks, t)
}

// Tracks returns a copy of the stream's tracks.
func (s *Stream) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// AudioTrack returns the first audio track, or nil.
func (s *Stream) AudioTrack() Track { return s.first(KindAudio) }

// VideoTrack returns the first video track, or nil.
func (s *Stream) VideoTrack() Track { return s.first(KindVideo) }

func (s *Stream) first(kind Kind) Track {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tracks {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}

// Stop stops every track of the stream.
func (s *Stream) Stop() {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
