// Package report renders check results for the plain, non-interactive
// commands.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JPM1118/refugewatch/internal/plan"
	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	foundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dayStyle   = lipgloss.NewStyle().Bold(true)
)

// Printer writes check results as text lines.
type Printer struct {
	out       io.Writer
	nameWidth int
	terminal  bool
}

// NewPrinter creates a printer aligning refuge names to nameWidth. Colours
// and screen clearing are used only when out is a terminal.
func NewPrinter(out io.Writer, nameWidth int) *Printer {
	return &Printer{out: out, nameWidth: nameWidth, terminal: IsTerminal(out)}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of w, or fallback.
func Width(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Line renders one target's result.
func Line(s poller.EntryState, nameWidth int) string {
	name := fmt.Sprintf("%*s", nameWidth, s.Target.Refuge.Name)
	date := s.Target.Date.Long()

	switch s.Status {
	case poller.StatusAvailable:
		return fmt.Sprintf("!!! %s: %d places left on %s !!!", name, s.Availability.Places, date)
	case poller.StatusOpenUnknown:
		return fmt.Sprintf("!!! %s: Check not possible, but it looks like booking is open! !!!", name)
	case poller.StatusClosed:
		return fmt.Sprintf("    %s: Closed on %s", name, date)
	case poller.StatusNotBookable:
		return fmt.Sprintf("    %s: Booking system not available yet.", name)
	case poller.StatusUnknown:
		return fmt.Sprintf("    %s: No availability information available. Try again later.", name)
	case poller.StatusError, poller.StatusUnreachable:
		return fmt.Sprintf("### Error while checking %s", s.Target.Refuge.Name)
	case "":
		return fmt.Sprintf("    %s: Waiting to be checked.", name)
	default:
		return fmt.Sprintf("    %s: Not available on %s", name, date)
	}
}

// Cycle prints every result of a poll cycle. With byDay set, results are
// grouped under a heading per night.
func (p *Printer) Cycle(u poller.Update, byDay bool) {
	var last refuges.Date
	for i, s := range u.States {
		if byDay && (i == 0 || s.Target.Date != last) {
			if i > 0 {
				fmt.Fprintln(p.out)
			}
			fmt.Fprintln(p.out, p.style(dayStyle, s.Target.Date.Long()+":"))
			last = s.Target.Date
		}
		fmt.Fprintln(p.out, p.styleFor(s.Status, Line(s, p.nameWidth)))
	}
}

// Clear clears the screen between cycles. It does nothing when the output
// is not a terminal, so piped output keeps every cycle.
func (p *Printer) Clear() {
	if p.terminal {
		io.WriteString(p.out, "\033[H\033[2J")
	}
}

// Days prints a plan, night by night.
func (p *Printer) Days(days []plan.Day) {
	for _, d := range days {
		fmt.Fprintln(p.out, p.style(dayStyle, d.Date.Long()+":"))
		for _, r := range d.Refuges {
			fmt.Fprintf(p.out, "  - %s\n", r.Name)
		}
	}
}

func (p *Printer) styleFor(status poller.Status, line string) string {
	switch {
	case status.Alerting():
		return p.style(foundStyle, line)
	case status == poller.StatusError || status == poller.StatusUnreachable:
		return p.style(errorStyle, line)
	case status == poller.StatusUnknown || status == poller.StatusNotBookable:
		return p.style(mutedStyle, line)
	default:
		return line
	}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.terminal {
		return text
	}
	return s.Render(text)
}

// RefugeList prints "id: name" lines with right-aligned ids.
func RefugeList(w io.Writer, list []refuges.Refuge) {
	idWidth := 0
	for _, r := range list {
		if n := len(fmt.Sprint(r.ID)); n > idWidth {
			idWidth = n
		}
	}
	var b strings.Builder
	for _, r := range list {
		fmt.Fprintf(&b, "%*d: %s\n", idWidth, r.ID, r.Name)
	}
	io.WriteString(w, b.String())
}
