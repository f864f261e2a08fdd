package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JPM1118/refugewatch/internal/notify"
	"github.com/JPM1118/refugewatch/internal/poller"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	colDate     = 13
	colRefuge   = 32
	colStatus   = 15
	colPlaces   = 8
	minWidth    = 80
	minHeight   = 16
	headerLines = 4 // header + subheader + column header + separator
	footerLines = 2 // notification bar + status bar

	notifyTimeout = 15 * time.Second
)

// Messages

type pollUpdateMsg struct {
	update poller.Update
}

// PlanChangedMsg tells the dashboard the plan file changed on disk.
type PlanChangedMsg struct{}

type planReloadedMsg struct {
	targets []poller.Target
	err     error
}

type notifyResultMsg struct {
	err error
}

// Dashboard is the main Bubble Tea model.
type Dashboard struct {
	poller   *poller.Poller
	bell     *notify.Bell
	bar      *notify.Bar
	notifier notify.Notifier
	reload   func() ([]poller.Target, error)
	now      func() time.Time

	states     []poller.EntryState
	lastUpdate time.Time
	cursor     int
	width      int
	height     int
	loading    bool
	lastErr    string // transient error shown in notification bar
}

// Option configures the dashboard.
type Option func(*Dashboard)

// WithBell rings the terminal bell when a refuge frees up.
func WithBell(b *notify.Bell) Option {
	return func(d *Dashboard) { d.bell = b }
}

// WithNotifyBar shows recent status changes above the status bar.
func WithNotifyBar(b *notify.Bar) Option {
	return func(d *Dashboard) { d.bar = b }
}

// WithNotifier delivers alerts outside the terminal.
func WithNotifier(n notify.Notifier) Option {
	return func(d *Dashboard) { d.notifier = n }
}

// WithPlanReload sets how targets are re-read when the plan changes.
func WithPlanReload(fn func() ([]poller.Target, error)) Option {
	return func(d *Dashboard) { d.reload = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// NewDashboard creates a new dashboard model fed by p.
func NewDashboard(p *poller.Poller, opts ...Option) Dashboard {
	d := Dashboard{
		poller:  p,
		now:     time.Now,
		loading: true,
	}
	for _, o := range opts {
		o(&d)
	}
	return d
}

// Init starts listening for poll results.
func (d Dashboard) Init() tea.Cmd {
	return d.waitForUpdate()
}

func (d Dashboard) waitForUpdate() tea.Cmd {
	ch := d.poller.Updates()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return pollUpdateMsg{update: u}
	}
}

func (d Dashboard) reloadPlan() tea.Cmd {
	reload := d.reload
	return func() tea.Msg {
		targets, err := reload()
		return planReloadedMsg{targets: targets, err: err}
	}
}

func (d Dashboard) sendAlerts(alerts []notify.Alert) tea.Cmd {
	n := d.notifier
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		var errs []string
		for _, a := range alerts {
			if err := n.Notify(ctx, a); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if len(errs) > 0 {
			return notifyResultMsg{err: fmt.Errorf("%s", strings.Join(errs, "; "))}
		}
		return notifyResultMsg{}
	}
}

// Update handles messages.
func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return d.handleKey(msg)

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case pollUpdateMsg:
		return d.applyUpdate(msg.update)

	case PlanChangedMsg:
		if d.reload == nil {
			return d, nil
		}
		return d, d.reloadPlan()

	case planReloadedMsg:
		if msg.err != nil {
			d.lastErr = fmt.Sprintf("Plan reload failed: %s", msg.err.Error())
			return d, nil
		}
		d.lastErr = ""
		d.loading = true
		d.poller.SetTargets(msg.targets)
		d.poller.TriggerNow()
		return d, nil

	case notifyResultMsg:
		if msg.err != nil {
			d.lastErr = fmt.Sprintf("Alert delivery failed: %s", msg.err.Error())
		}
		return d, nil
	}

	return d, nil
}

func (d Dashboard) applyUpdate(u poller.Update) (tea.Model, tea.Cmd) {
	d.loading = false
	d.states = u.States
	d.lastUpdate = u.At

	// Clamp cursor
	if d.cursor >= len(d.states) {
		d.cursor = max(0, len(d.states)-1)
	}

	if d.bar != nil {
		for _, s := range u.Transitions {
			d.bar.Push(notify.NotificationFrom(s))
		}
	}

	fresh := notify.NewlyAlerting(u)
	if len(fresh) > 0 && d.bell != nil {
		d.bell.Ring(fresh[0].Status, d.now())
	}

	cmds := []tea.Cmd{d.waitForUpdate()}
	if len(fresh) > 0 && d.notifier != nil {
		alerts := make([]notify.Alert, 0, len(fresh))
		for _, s := range fresh {
			alerts = append(alerts, notify.AlertFrom(s))
		}
		cmds = append(cmds, d.sendAlerts(alerts))
	}
	return d, tea.Batch(cmds...)
}

func (d Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return d, tea.Quit

	case "j", "down":
		if d.cursor < len(d.states)-1 {
			d.cursor++
		}
		return d, nil

	case "k", "up":
		if d.cursor > 0 {
			d.cursor--
		}
		return d, nil

	case "r":
		d.loading = true
		d.lastErr = ""
		d.poller.Refresh()
		return d, nil

	case "s":
		if d.bell != nil {
			d.bell.SetSilent(!d.bell.Silent())
		}
		return d, nil

	case "c":
		if d.bar != nil && len(d.states) > 0 {
			t := d.states[d.cursor].Target
			d.bar.ClearFor(t.Refuge.Name, t.Date)
		}
		return d, nil

	case "G":
		if len(d.states) > 0 {
			d.cursor = len(d.states) - 1
		}
		return d, nil

	case "g":
		d.cursor = 0
		return d, nil
	}

	return d, nil
}

// View renders the dashboard.
func (d Dashboard) View() string {
	if d.width < minWidth || d.height < minHeight {
		return fmt.Sprintf("\n  Terminal too small (need %dx%d, got %dx%d)\n", minWidth, minHeight, d.width, d.height)
	}

	var b strings.Builder

	b.WriteString(d.renderHeader())
	b.WriteString("\n")
	b.WriteString(d.renderSubheader())
	b.WriteString("\n")
	b.WriteString(d.renderColumnHeaders())
	b.WriteString("\n")
	b.WriteString(d.renderSeparator())
	b.WriteString("\n")

	listHeight := d.height - headerLines - footerLines
	b.WriteString(d.renderTargetList(listHeight))

	b.WriteString(d.renderNotificationBar())
	b.WriteString("\n")
	b.WriteString(d.renderStatusBar())

	return b.String()
}

func (d Dashboard) renderHeader() string {
	title := headerStyle.Render("refugewatch")

	available := 0
	for _, s := range d.states {
		if s.Status.Alerting() {
			available++
		}
	}

	right := ""
	if available > 0 {
		right = badgeStyle.Render(fmt.Sprintf("[%d available]", available))
	}

	gap := d.width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + right
}

func (d Dashboard) renderSubheader() string {
	var status string
	switch {
	case d.loading:
		status = "Checking..."
	case d.lastUpdate.IsZero():
		status = "Waiting for first check"
	default:
		next := d.poller.NextRun(d.lastUpdate)
		status = fmt.Sprintf("Checked %s · next check %s · alert above %d places",
			d.lastUpdate.Format("15:04:05"), next.Format("15:04:05"), d.poller.MinPlaces())
	}
	out := subheaderStyle.Render(status)
	if d.bell != nil && d.bell.Silent() {
		out += "  " + silentStyle.Render("[silent]")
	}
	return out
}

func (d Dashboard) showChecked() bool {
	return d.width >= 90
}

func (d Dashboard) renderColumnHeaders() string {
	header := padRight("NIGHT", colDate) +
		padRight("REFUGE", colRefuge) +
		padRight("STATUS", colStatus) +
		padRight("PLACES", colPlaces)
	if d.showChecked() {
		header += "CHECKED"
	}
	return columnHeaderStyle.Render("  " + header)
}

func (d Dashboard) renderSeparator() string {
	sep := padRight(strings.Repeat("─", colDate-1), colDate) +
		padRight(strings.Repeat("─", colRefuge-1), colRefuge) +
		padRight(strings.Repeat("─", colStatus-1), colStatus) +
		padRight(strings.Repeat("─", colPlaces-1), colPlaces)
	if d.showChecked() {
		sep += strings.Repeat("─", 10)
	}
	return subheaderStyle.Render("  " + sep)
}

func (d Dashboard) renderTargetList(height int) string {
	if d.loading && len(d.states) == 0 {
		return padLines("  Checking availability...\n", height)
	}

	if len(d.states) == 0 {
		msg := "  No nights planned.\n\n  Use 'refugewatch plan day <date> <refuge>...' to add one.\n"
		return padLines(msg, height)
	}

	// Calculate visible range (scroll if needed)
	start := 0
	if d.cursor >= height {
		start = d.cursor - height + 1
	}
	end := start + height
	if end > len(d.states) {
		end = len(d.states)
	}

	now := d.now()
	var b strings.Builder
	for i := start; i < end; i++ {
		s := d.states[i]

		prefix := "  "
		if i == d.cursor {
			prefix = cursorStyle.Render("▸ ")
		}

		date := padRight(s.Target.Date.Time().Format("Mon Jan 02"), colDate)
		if i > start && d.states[i-1].Target.Date == s.Target.Date {
			date = padRight("", colDate)
		} else {
			date = dayStyle.Render(date)
		}

		name := padRight(truncate(s.Target.Refuge.Name, colRefuge-2), colRefuge)
		styledStatus := statusStyle(s.Status).Render(padRight(statusLabel(s.Status), colStatus))
		places := padRight(placesText(s), colPlaces)

		line := prefix + date + name + styledStatus + places
		if d.showChecked() {
			line += lipgloss.NewStyle().Foreground(colorMuted).Render(ageText(s, now))
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	// Pad remaining lines
	rendered := end - start
	for i := rendered; i < height; i++ {
		b.WriteString("\n")
	}

	return b.String()
}

func (d Dashboard) renderNotificationBar() string {
	if d.lastErr != "" {
		return notificationBarStyle.Render("  " + truncate(d.lastErr, d.width-4))
	}
	if d.bar != nil {
		return notificationBarStyle.Render("  " + d.bar.Render(d.width-4, d.now()))
	}
	return notificationBarStyle.Render("")
}

func (d Dashboard) renderStatusBar() string {
	return statusBarStyle.Render("  j/k:navigate  r:refresh  s:silent  c:clear  q:quit")
}

// Helpers

func padRight(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func padLines(content string, height int) string {
	lines := strings.Count(content, "\n")
	padding := height - lines
	if padding > 0 {
		content += strings.Repeat("\n", padding)
	}
	return content
}

func placesText(s poller.EntryState) string {
	switch {
	case s.Status == "" || s.Status == poller.StatusUnknown:
		return "-"
	case !s.Availability.PlacesKnown:
		return "?"
	default:
		return fmt.Sprint(s.Availability.Places)
	}
}

func ageText(s poller.EntryState, now time.Time) string {
	if s.LastPollTime.IsZero() {
		return ""
	}
	age := now.Sub(s.LastPollTime).Truncate(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
}
