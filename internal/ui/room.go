package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/huddle/internal/compose"
	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/session"
	"github.com/BioHazard786/huddle/internal/utils"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxNotes       = 3
	chatLines      = 8
	sampleInterval = time.Second
)

// Controller is the session surface the room view drives.
type Controller interface {
	Snapshot() session.Snapshot
	Updates() <-chan struct{}
	Notifications() <-chan session.Notification
	ToggleMute() error
	ToggleVideo() error
	ToggleScreenShare(ctx context.Context) error
	SendChat(text string) error
}

// RoomInfo is static information shown in the header.
type RoomInfo struct {
	RoomID      string
	JoinCommand string
}

type (
	updateMsg       struct{}
	notificationMsg session.Notification
	sampleMsg       time.Time
	actionMsg       struct {
		op  string
		err error
	}
)

// RoomModel is the bubbletea model for an active room.
type RoomModel struct {
	ctrl Controller
	info RoomInfo

	snap     session.Snapshot
	input    textinput.Model
	spinner  spinner.Model
	notes    []session.Notification
	meters   map[string]*utils.RateMeter
	rates    map[string]float64
	chatting bool
	quitting bool
	width    int
}

func NewRoomModel(ctrl Controller, info RoomInfo) *RoomModel {
	input := textinput.New()
	input.Placeholder = "Say something…"
	input.CharLimit = 500
	input.Prompt = IconChat + " "

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &RoomModel{
		ctrl:    ctrl,
		info:    info,
		snap:    ctrl.Snapshot(),
		input:   input,
		spinner: s,
		meters:  make(map[string]*utils.RateMeter),
		rates:   make(map[string]float64),
	}
}

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForUpdate(m.ctrl.Updates()),
		waitForNotification(m.ctrl.Notifications()),
		sample(),
	)
}

func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return updateMsg{}
	}
}

func waitForNotification(ch <-chan session.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

func sample() tea.Cmd {
	return tea.Tick(sampleInterval, func(t time.Time) tea.Msg {
		return sampleMsg(t)
	})
}

func (m *RoomModel) action(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{op: op, err: fn()}
	}
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-8)

	case updateMsg:
		m.snap = m.ctrl.Snapshot()
		return m, waitForUpdate(m.ctrl.Updates())

	case notificationMsg:
		m.addNote(session.Notification(msg))
		return m, waitForNotification(m.ctrl.Notifications())

	case actionMsg:
		// Typed session errors already arrive as notifications.
		if msg.err != nil && session.KindOf(msg.err) == "" {
			m.addNote(session.Notification{Level: session.LevelWarning, Text: msg.op + ": " + msg.err.Error(), Err: msg.err, At: time.Now()})
		}

	case sampleMsg:
		m.sampleRates(time.Time(msg))
		return m, sample()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *RoomModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.chatting {
		switch msg.String() {
		case "enter":
			text := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			return m, m.action("send chat", func() error { return m.ctrl.SendChat(text) })
		case "esc":
			m.chatting = false
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "m":
		return m, m.action("mute", m.ctrl.ToggleMute)
	case "v":
		return m, m.action("video", m.ctrl.ToggleVideo)
	case "s":
		return m, m.action("screen share", func() error {
			return m.ctrl.ToggleScreenShare(context.Background())
		})
	case "c", "enter", "/":
		m.chatting = true
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *RoomModel) addNote(n session.Notification) {
	m.notes = append(m.notes, n)
	if len(m.notes) > maxNotes {
		m.notes = m.notes[len(m.notes)-maxNotes:]
	}
}

// sampleRates updates the received bitrate of every remote stream.
func (m *RoomModel) sampleRates(now time.Time) {
	seen := make(map[string]bool, len(m.snap.Participants))
	for _, p := range m.snap.Participants {
		if p.Stream == nil {
			continue
		}
		id := p.Stream.ID()
		seen[id] = true

		meter, ok := m.meters[id]
		if !ok {
			meter = &utils.RateMeter{}
			m.meters[id] = meter
		}
		m.rates[id] = meter.Sample(bytesReceived(p.Stream), now)
	}

	for id := range m.meters {
		if !seen[id] {
			delete(m.meters, id)
			delete(m.rates, id)
		}
	}
}

func bytesReceived(s *media.Stream) uint64 {
	var total uint64
	for _, t := range s.Tracks() {
		if remote, ok := t.(*media.RemoteTrack); ok {
			total += remote.BytesReceived()
		}
	}
	return total
}

func (m *RoomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := HeaderStyle.Render(fmt.Sprintf("huddle · %s", m.info.RoomID))
	state := StatusStyle.Render(m.snap.State.String())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, header, " ", state))
	b.WriteString("\n\n")

	if m.snap.State == session.Connecting {
		b.WriteString(fmt.Sprintf("%s Connecting to the room…\n", m.spinner.View()))
		return b.String()
	}
	if m.snap.State != session.Joined {
		b.WriteString(MutedStyle.Render("Not in a room") + "\n")
		return b.String()
	}

	b.WriteString(RoomBanner(m.info.RoomID, m.info.JoinCommand))
	b.WriteString("\n")
	b.WriteString(m.feedsView())
	b.WriteString("\n")
	b.WriteString(RosterView(Roster(m.snap.DisplayName, m.snap.Status, m.snap.Participants)))
	b.WriteString("\n")
	b.WriteString(m.chatView())
	b.WriteString("\n")
	b.WriteString(m.notesView())
	b.WriteString(FooterStyle.Render(m.help()))

	return b.String()
}

func (m *RoomModel) feedsView() string {
	view := m.snap.View
	var main string
	if view.Main == nil {
		main = EmptyFeedStyle.Render("No video")
	} else {
		style := MainFeedStyle
		if view.Main.Kind == compose.KindScreen {
			style = ScreenFeedStyle
		}
		if m.width > 0 {
			style = style.Width(max(30, m.width-6))
		}
		main = style.Render(m.feedLabel(*view.Main, true))
	}

	if len(view.Secondary) == 0 {
		return main
	}
	tiles := make([]string, 0, len(view.Secondary))
	for _, f := range view.Secondary {
		tiles = append(tiles, SecondaryFeedStyle.Render(m.feedLabel(f, false)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, main, lipgloss.JoinHorizontal(lipgloss.Top, tiles...))
}

func (m *RoomModel) feedLabel(f compose.Feed, detailed bool) string {
	name := displayName(f.Name, f.ID)
	if f.Local {
		name += " (you)"
	}
	kind := IconCamera
	if f.Kind == compose.KindScreen {
		kind = IconScreen + " screen"
	}

	lines := []string{BoldStyle.Render(utils.TruncateString(name, 18)), kind + "  " + StatusIcons(f.Status)}
	if detailed {
		lines = append(lines, MutedStyle.Render(m.activity(f)))
	}
	return strings.Join(lines, "\n")
}

func (m *RoomModel) activity(f compose.Feed) string {
	if f.Local {
		if f.Kind == compose.KindCamera && f.Status.VideoOff {
			return "camera paused"
		}
		return "sending"
	}
	if f.Stream == nil {
		return "waiting for media"
	}
	return "receiving " + utils.FormatBitrate(m.rates[f.Stream.ID()])
}

func (m *RoomModel) chatView() string {
	chat := m.snap.Chat
	if len(chat) > chatLines {
		chat = chat[len(chat)-chatLines:]
	}

	lines := make([]string, 0, len(chat)+1)
	if len(chat) == 0 {
		lines = append(lines, MutedStyle.Render("No messages yet"))
	}
	for _, msg := range chat {
		sender := ChatTheirsStyle.Render(msg.SenderName)
		if msg.IsMine {
			sender = ChatMineStyle.Render("You")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ChatTimeStyle.Render(msg.Timestamp.Format("15:04")), sender, msg.Text))
	}
	if m.chatting {
		lines = append(lines, m.input.View())
	}
	return ChatBoxStyle.Render(strings.Join(lines, "\n"))
}

func (m *RoomModel) notesView() string {
	var b strings.Builder
	for _, n := range m.notes {
		switch n.Level {
		case session.LevelError:
			b.WriteString(ErrorStyle.Render(IconError + " " + n.Text))
		case session.LevelWarning:
			b.WriteString(WarningStyle.Render(IconWarning + " " + n.Text))
		default:
			b.WriteString(MutedStyle.Render(IconInfo + " " + n.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *RoomModel) help() string {
	if m.chatting {
		return "enter send · esc back · ctrl+c leave"
	}
	mute, video, share := "mute", "stop video", "share screen"
	if m.snap.Status.Muted {
		mute = "unmute"
	}
	if m.snap.Status.VideoOff {
		video = "start video"
	}
	if m.snap.Status.SharingScreen {
		share = "stop sharing"
	}
	if !m.snap.HasCamera {
		return fmt.Sprintf("s %s · c chat · q leave", share)
	}
	return fmt.Sprintf("m %s · v %s · s %s · c chat · q leave", mute, video, share)
}
