package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/huddle/internal/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// CallSummary is what the CLI prints after leaving a room.
type CallSummary struct {
	RoomID           string
	Duration         time.Duration
	Peers            []string
	CallsPlaced      int
	CallsAnswered    int
	MessagesSent     int
	MessagesReceived int
	ScreenShares     int
}

// CallSummaryView renders the summary as a go-pretty table.
func CallSummaryView(s CallSummary) string {
	tw := table.NewWriter()
	tw.SetTitle("Call Summary")
	tw.SetStyle(table.StyleRounded)
	tw.Style().Title.Align = text.AlignCenter
	tw.Style().Color.Header = text.Colors{text.Bold, text.FgHiGreen}

	peers := "none"
	if len(s.Peers) > 0 {
		peers = strings.Join(s.Peers, ", ")
	}

	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Room", s.RoomID},
		{"Duration", utils.FormatTimeDuration(s.Duration)},
		{"Participants", peers},
		{"Calls placed", s.CallsPlaced},
		{"Calls answered", s.CallsAnswered},
		{"Messages sent", s.MessagesSent},
		{"Messages received", s.MessagesReceived},
		{"Screen shares", s.ScreenShares},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 48},
	})

	return tw.Render()
}

func RenderCallSummary(s CallSummary) {
	fmt.Println()
	fmt.Println(CallSummaryView(s))
}
