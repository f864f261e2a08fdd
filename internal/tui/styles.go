package tui

import (
	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	colorAvailable = lipgloss.Color("2")  // green
	colorOpen      = lipgloss.Color("3")  // yellow
	colorError     = lipgloss.Color("1")  // red
	colorClosed    = lipgloss.Color("5")  // magenta
	colorHeader    = lipgloss.Color("12") // bright blue
	colorMuted     = lipgloss.Color("8")  // dim
	colorCursor    = lipgloss.Color("6")  // cyan

	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeader)

	subheaderStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorCursor).
			Bold(true)

	columnHeaderStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Underline(true)

	dayStyle = lipgloss.NewStyle().
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	notificationBarStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Italic(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(colorAvailable).
			Bold(true)

	silentStyle = lipgloss.NewStyle().
			Foreground(colorOpen)
)

// statusStyle returns the appropriate style for a target status.
func statusStyle(status poller.Status) lipgloss.Style {
	switch status {
	case poller.StatusAvailable:
		return lipgloss.NewStyle().Foreground(colorAvailable).Bold(true)
	case poller.StatusOpenUnknown:
		return lipgloss.NewStyle().Foreground(colorOpen).Bold(true)
	case poller.StatusClosed:
		return lipgloss.NewStyle().Foreground(colorClosed)
	case poller.StatusError:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case poller.StatusUnreachable:
		return lipgloss.NewStyle().Foreground(colorError)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}

// statusLabel returns the display text for a status, including indicators.
func statusLabel(status poller.Status) string {
	switch status {
	case "":
		return "…"
	case poller.StatusAvailable:
		return "AVAILABLE !"
	case poller.StatusOpenUnknown:
		return "OPEN ?"
	case poller.StatusNotBookable:
		return "NOT OPEN"
	case poller.StatusError:
		return "ERROR !"
	case poller.StatusUnreachable:
		return "UNREACHABLE ?"
	default:
		return string(status)
	}
}
