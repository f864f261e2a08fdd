package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/refuges"
)

// Notification represents a single availability transition.
type Notification struct {
	RefugeName string
	Date       refuges.Date
	OldStatus  poller.Status
	NewStatus  poller.Status
	Places     int
	Timestamp  time.Time
}

// NotificationFrom builds a bar entry from a polled target that changed
// status.
func NotificationFrom(s poller.EntryState) Notification {
	return Notification{
		RefugeName: s.Target.Refuge.Name,
		Date:       s.Target.Date,
		OldStatus:  s.PreviousStatus,
		NewStatus:  s.Status,
		Places:     s.Availability.Places,
		Timestamp:  s.LastPollTime,
	}
}

// Bar manages a FIFO queue of notification entries.
type Bar struct {
	items    []Notification
	maxStore int
}

// NewBar creates a notification bar with the given buffer size.
func NewBar(maxStore int) *Bar {
	return &Bar{
		items:    make([]Notification, 0, maxStore),
		maxStore: maxStore,
	}
}

// Push adds a notification, trimming oldest if at capacity.
func (b *Bar) Push(n Notification) {
	b.items = append(b.items, n)
	if len(b.items) > b.maxStore {
		b.items = b.items[len(b.items)-b.maxStore:]
	}
}

// Visible returns the most recent notifications (max 2).
func (b *Bar) Visible() []Notification {
	if len(b.items) <= 2 {
		return b.items
	}
	return b.items[len(b.items)-2:]
}

// ClearFor removes all notifications about the given refuge and night.
func (b *Bar) ClearFor(name string, date refuges.Date) {
	filtered := b.items[:0]
	for _, n := range b.items {
		if n.RefugeName != name || n.Date != date {
			filtered = append(filtered, n)
		}
	}
	b.items = filtered
}

// Len returns the total number of buffered notifications.
func (b *Bar) Len() int {
	return len(b.items)
}

// Render formats the visible notifications for display within the given width.
func (b *Bar) Render(width int, now time.Time) string {
	visible := b.Visible()
	if len(visible) == 0 {
		return ""
	}

	parts := make([]string, 0, len(visible))
	for _, n := range visible {
		parts = append(parts, formatNotification(n, now))
	}
	result := strings.Join(parts, " │ ")

	runes := []rune(result)
	if len(runes) > width {
		if width > 1 {
			result = string(runes[:width-1]) + "…"
		} else {
			result = string(runes[:width])
		}
	}

	return result
}

func formatNotification(n Notification, now time.Time) string {
	age := now.Sub(n.Timestamp).Truncate(time.Second)
	var ageStr string
	if age < time.Minute {
		ageStr = fmt.Sprintf("%ds ago", int(age.Seconds()))
	} else if age < time.Hour {
		ageStr = fmt.Sprintf("%dm ago", int(age.Minutes()))
	} else {
		ageStr = fmt.Sprintf("%dh ago", int(age.Hours()))
	}

	what := string(n.NewStatus)
	if n.NewStatus == poller.StatusAvailable {
		what = fmt.Sprintf("%d places", n.Places)
	}
	return fmt.Sprintf("● %s %s: %s → %s (%s)", n.RefugeName, n.Date.Time().Format("Jan 02"), n.OldStatus, what, ageStr)
}
