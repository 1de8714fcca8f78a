package ui

import (
	"fmt"

	"github.com/BioHazard786/huddle/internal/compose"
	"github.com/BioHazard786/huddle/internal/room"
	"github.com/BioHazard786/huddle/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RosterEntry is one row of the participant table.
type RosterEntry struct {
	Name      string
	Status    room.Status
	Connected bool
	Local     bool
}

// RosterView renders the participant list with status columns.
func RosterView(entries []RosterEntry) string {
	if len(entries) == 0 {
		return MutedStyle.Render("Nobody else is here yet")
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := utils.TruncateString(e.Name, 20)
		if e.Local {
			name += " (you)"
		}
		media := "connecting"
		if e.Connected || e.Local {
			media = "live"
		}
		rows = append(rows, []string{name, StatusIcons(e.Status), media})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Mint)).
		Headers("Name", "Status", "Media").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// Roster builds roster rows from the local user and the participants.
func Roster(selfName string, self room.Status, participants []compose.Participant) []RosterEntry {
	entries := make([]RosterEntry, 0, len(participants)+1)
	entries = append(entries, RosterEntry{Name: selfName, Status: self, Local: true})
	for _, p := range participants {
		entries = append(entries, RosterEntry{
			Name:      displayName(p.Name, p.ID),
			Status:    p.Status,
			Connected: p.Stream != nil,
		})
	}
	return entries
}

// StatusIcons renders a status as microphone, camera and screen markers.
func StatusIcons(s room.Status) string {
	mic, cam := IconMic, IconCamera
	if s.Muted {
		mic = IconMuted
	}
	if s.VideoOff {
		cam = IconNoCamera
	}
	out := mic + " " + cam
	if s.SharingScreen {
		out += " " + IconScreen
	}
	return out
}

// RoomBanner renders the room name and the command others use to join.
func RoomBanner(roomID, joinCommand string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Green).
		Padding(0, 2)

	content := fmt.Sprintf("%s Room:   %s\n%s Invite: %s",
		IconRoom, BoldStyle.Foreground(Mint).Render(roomID),
		IconLink, MutedStyle.Render(joinCommand),
	)
	return boxStyle.Render(content)
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
