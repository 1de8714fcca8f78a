package media

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind is the media type of a track.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Track is a single audio or video track.
//
// Enabled controls whether media flows: a disabled local track keeps its
// place in every call but sends nothing. OnEnded handlers run once when the
// track ends on its own (source exhausted, remote hung up); an explicit Stop
// does not fire them.
type Track interface {
	ID() string
	Kind() Kind
	Enabled() bool
	SetEnabled(enabled bool)
	Stop()
	Ended() bool
	OnEnded(fn func())
}

// trackState holds the bookkeeping shared by local and remote tracks.
type trackState struct {
	id      string
	kind    Kind
	enabled atomic.Bool

	mu      sync.Mutex
	ended   bool
	onEnded []func()
	stopped chan struct{}
	once    sync.Once
}

func newTrackState(kind Kind) *trackState {
	t := &trackState{
		id:      uuid.NewString(),
		kind:    kind,
		stopped: make(chan struct{}),
	}
	t.enabled.Store(true)
	return t
}

func (t *trackState) ID() string { return t.id }

func (t *trackState) Kind() Kind { return t.kind }

func (t *trackState) Enabled() bool { return t.enabled.Load() }

func (t *trackState) SetEnabled(enabled bool) { t.enabled.Store(enabled) }

func (t *trackState) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

func (t *trackState) OnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = append(t.onEnded, fn)
}

// stop marks the track ended without running the end hooks.
func (t *trackState) stop() bool {
	first := false
	t.once.Do(func() {
		first = true
		t.mu.Lock()
		t.ended = true
		t.onEnded = nil
		t.mu.Unlock()
		close(t.stopped)
	})
	return first
}

// end marks the track ended and runs the end hooks once.
func (t *trackState) end() {
	var hooks []func()
	t.once.Do(func() {
		t.mu.Lock()
		t.ended = true
		hooks = t.onEnded
		t.onEnded = nil
		t.mu.Unlock()
		close(t.stopped)
	})
	for _, fn := range hooks {
		fn()
	}
}
