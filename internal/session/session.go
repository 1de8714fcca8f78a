// Package session runs the state machine for one conference session: room
// membership, one call per remote member, local media toggles and the chat
// log. All state is owned by a single event loop; relay events, peer events
// and API calls are serialized through it.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/huddle/internal/compose"
	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/room"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the session lifecycle state.
type State int

const (
	Idle State = iota
	Connecting
	Joined
	Leaving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	case Leaving:
		return "leaving"
	default:
		return "unknown"
	}
}

// Relay is the room membership channel.
type Relay interface {
	Events() <-chan signaling.Event
	JoinRoom(selfID, displayName string, status room.Status) error
	UpdateStatus(patch room.StatusPatch) error
	SendChat(text, senderName string, at time.Time) error
	Close() error
}

// PeerManager places and receives calls.
type PeerManager interface {
	Events() <-chan peer.Event
	Call(remoteID string, stream *media.Stream) (peer.Handle, error)
	Close() error
}

type (
	RelayDialer func(ctx context.Context) (Relay, error)
	PeerDialer  func(ctx context.Context) (PeerManager, error)
)

// Options configures a Session.
type Options struct {
	RoomID    string
	Capturer  media.Capturer
	DialRelay RelayDialer
	DialPeers PeerDialer

	// StartMuted and StartVideoOff disable the camera tracks before the
	// first announcement.
	StartMuted    bool
	StartVideoOff bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Participant is one remote member.
type Participant struct {
	ID     string
	Name   string
	Status room.Status
	Stream *media.Stream
	Call   peer.Handle
}

type localSession struct {
	displayName string
	selfID      string
	camera      *media.Stream
	screen      *media.Stream
	muted       bool
	videoOff    bool
}

// Stats counts what happened during the last session.
type Stats struct {
	JoinedAt         time.Time
	LeftAt           time.Time
	CallsPlaced      int
	CallsAnswered    int
	MessagesSent     int
	MessagesReceived int
	ScreenShares     int
	Peers            []string
}

// Snapshot is a copy of the session state taken after an event was handled.
// It holds no call handles.
type Snapshot struct {
	State        State
	RoomID       string
	SelfID       string
	DisplayName  string
	Status       room.Status
	HasCamera    bool
	Participants []compose.Participant
	Chat         []room.ChatMessage
	View         compose.View
	Stats        Stats
}

// NotificationLevel grades a notification.
type NotificationLevel int

const (
	LevelInfo NotificationLevel = iota
	LevelWarning
	LevelError
)

// Notification is a human-readable message for the view layer.
type Notification struct {
	Level NotificationLevel
	Text  string
	Err   error
	At    time.Time
}

// Session is one conference session. Create it with New and release it with
// Close.
type Session struct {
	opts Options
	log  zerolog.Logger

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	updates       chan struct{}
	notifications chan Notification
	snapshot      atomic.Pointer[Snapshot]

	// Everything below is owned by the loop goroutine.
	state        State
	epoch        uint64
	joining      bool
	sharePending bool
	local        localSession
	relay        Relay
	peers        PeerManager
	relayEvents  <-chan signaling.Event
	peerEvents   <-chan peer.Event
	participants map[string]*Participant
	order        []string
	live         map[peer.Handle]bool
	names        map[string]string
	chat         []room.ChatMessage
	stats        Stats
}

// New creates a session and starts its event loop.
func New(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		opts:          opts,
		log:           log.With().Str("module", "session").Str("room", opts.RoomID).Logger(),
		ops:           make(chan func()),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		updates:       make(chan struct{}, 1),
		notifications: make(chan Notification, 64),
		participants:  make(map[string]*Participant),
		live:          make(map[peer.Handle]bool),
		names:         make(map[string]string),
	}
	s.publish()

	go s.run()
	return s
}

// Updates signals after every handled event. Signals are coalesced.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Notifications delivers notifications for the view layer. When nobody reads
// them, old ones are dropped.
func (s *Session) Notifications() <-chan Notification {
	return s.notifications
}

// Snapshot returns the state as of the last handled event.
func (s *Session) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Close leaves the room and stops the event loop. Events arriving afterwards
// are dropped.
func (s *Session) Close() error {
	s.Leave()
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	return nil
}

func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case fn := <-s.ops:
			fn()

		case ev, ok := <-s.relayEvents:
			if !ok {
				s.relayEvents = nil
				s.relayLost()
			} else {
				s.handleRelay(ev)
			}

		case ev, ok := <-s.peerEvents:
			if !ok {
				s.peerEvents = nil
			} else {
				s.handlePeer(ev)
			}

		case <-s.quit:
			return
		}

		s.publish()
	}
}

// post runs fn on the loop. It reports false once the loop has stopped.
func (s *Session) post(fn func()) bool {
	select {
	case s.ops <- fn:
		return true
	case <-s.done:
		return false
	}
}

// do runs fn on the loop and waits for its result.
func (s *Session) do(fn func() error) error {
	result := make(chan error, 1)
	if !s.post(func() { result <- fn() }) {
		return ErrClosed
	}
	return <-result
}

func (s *Session) publish() {
	participants := make([]compose.Participant, 0, len(s.order))
	for _, id := range s.order {
		p := s.participants[id]
		participants = append(participants, compose.Participant{
			ID:     p.ID,
			Name:   p.Name,
			Status: p.Status,
			Stream: p.Stream,
		})
	}

	status := s.localStatus()
	chat := make([]room.ChatMessage, len(s.chat))
	copy(chat, s.chat)
	stats := s.stats
	stats.Peers = append([]string(nil), s.stats.Peers...)

	s.snapshot.Store(&Snapshot{
		State:        s.state,
		RoomID:       s.opts.RoomID,
		SelfID:       s.local.selfID,
		DisplayName:  s.local.displayName,
		Status:       status,
		HasCamera:    s.local.camera != nil,
		Participants: participants,
		Chat:         chat,
		View:         compose.Compose(s.local.camera, s.local.screen, participants, s.local.selfID, s.local.displayName, status),
		Stats:        stats,
	})

	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Session) localStatus() room.Status {
	return room.Status{
		Muted:         s.local.muted,
		VideoOff:      s.local.videoOff,
		SharingScreen: s.local.screen != nil,
	}
}

func (s *Session) notify(level NotificationLevel, text string, err error) {
	ev := s.log.Info()
	switch level {
	case LevelWarning:
		ev = s.log.Warn()
	case LevelError:
		ev = s.log.Error()
	}
	ev.Err(err).Msg(text)

	n := Notification{Level: level, Text: text, Err: err, At: s.opts.Now()}
	select {
	case s.notifications <- n:
	default:
		s.log.Debug().Str("text", text).Msg("notification dropped")
	}
}

func (s *Session) notifyError(err error) {
	s.notify(LevelError, err.Error(), err)
}
