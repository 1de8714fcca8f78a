package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	Mint  = lipgloss.Color("#34D399")
	Sky   = lipgloss.Color("#60A5FA")
	Green = lipgloss.Color("#10B981")
	Amber = lipgloss.Color("#F59E0B")
	Red   = lipgloss.Color("#EF4444")
	Slate = lipgloss.Color("#6B7280")
	Ink   = lipgloss.Color("#111827")
	Panel = lipgloss.Color("#1F2937")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Mint)
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(Green)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(Red)
	WarningStyle = lipgloss.NewStyle().Foreground(Amber)
	MutedStyle   = lipgloss.NewStyle().Foreground(Slate)
	BoldStyle    = lipgloss.NewStyle().Bold(true)

	// StatusStyle is the pill showing the session state in the header.
	StatusStyle = lipgloss.NewStyle().Bold(true).Foreground(Ink).Background(Mint).Padding(0, 1)
)

// Feeds. The main feed is wide and secondary feeds tile below it.
var (
	MainFeedStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Mint).Padding(1, 2)
	ScreenFeedStyle    = MainFeedStyle.BorderForeground(Sky)
	SecondaryFeedStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(Slate).Padding(0, 1).Width(22)
	EmptyFeedStyle     = lipgloss.NewStyle().Border(lipgloss.HiddenBorder()).Foreground(Slate).Padding(1, 2)
)

var (
	ChatBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Slate).Padding(0, 1)
	ChatMineStyle   = lipgloss.NewStyle().Bold(true).Foreground(Mint)
	ChatTheirsStyle = lipgloss.NewStyle().Bold(true).Foreground(Sky)
	ChatTimeStyle   = MutedStyle
)

var (
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(Mint).Align(lipgloss.Center)
	TableRowStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("255"))
	TableRowAltStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))

	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(Mint).Background(Panel).Padding(0, 2)
	FooterStyle  = lipgloss.NewStyle().Foreground(Slate).MarginTop(1)
	SpinnerStyle = lipgloss.NewStyle().Foreground(Mint)
)

const (
	IconMic      = "🎙️"
	IconMuted    = "🔇"
	IconCamera   = "📷"
	IconNoCamera = "🚫"
	IconScreen   = "🖥️"
	IconChat     = "💬"
	IconPeer     = "👤"
	IconRoom     = "🚪"
	IconLink     = "🔗"
	IconSuccess  = "✅"
	IconError    = "❌"
	IconWarning  = "⚠️"
	IconInfo     = "ℹ️"
	IconWave     = "👋"
)

func printLine(icon, msg string) {
	fmt.Println(icon + " " + msg)
}

func PrintError(msg string) {
	printLine(ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintWarning(msg string) {
	printLine(WarningStyle.Render(IconWarning), WarningStyle.Render(msg))
}

func PrintSuccess(msg string) {
	printLine(SuccessStyle.Render(IconSuccess), msg)
}

func PrintInfo(msg string) {
	printLine(IconInfo, msg)
}
