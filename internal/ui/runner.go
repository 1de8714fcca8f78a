package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// RunRoom shows the room view until the user leaves or ctx is cancelled.
// Leaving the room itself is up to the caller.
func RunRoom(ctx context.Context, ctrl Controller, info RoomInfo) error {
	program := tea.NewProgram(
		NewRoomModel(ctrl, info),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
