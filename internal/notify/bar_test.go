package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/refuges"
)

var (
	night     = refuges.Date{Year: 2024, Month: time.September, Day: 11}
	nextNight = refuges.Date{Year: 2024, Month: time.September, Day: 12}
)

func TestBar_PushAndVisible(t *testing.T) {
	b := NewBar(20)
	now := time.Now()

	b.Push(Notification{RefugeName: "a", OldStatus: poller.StatusFull, NewStatus: poller.StatusAvailable, Timestamp: now})
	b.Push(Notification{RefugeName: "b", OldStatus: poller.StatusAvailable, NewStatus: poller.StatusFull, Timestamp: now})
	b.Push(Notification{RefugeName: "c", OldStatus: poller.StatusFull, NewStatus: poller.StatusClosed, Timestamp: now})

	visible := b.Visible()
	if len(visible) != 2 {
		t.Fatalf("Visible() = %d items, want 2", len(visible))
	}
	if visible[0].RefugeName != "b" {
		t.Errorf("visible[0].RefugeName = %q, want b", visible[0].RefugeName)
	}
	if visible[1].RefugeName != "c" {
		t.Errorf("visible[1].RefugeName = %q, want c", visible[1].RefugeName)
	}
}

func TestBar_VisibleEmpty(t *testing.T) {
	b := NewBar(20)
	if len(b.Visible()) != 0 {
		t.Error("empty bar should have no visible items")
	}
}

func TestBar_MaxBuffer(t *testing.T) {
	b := NewBar(3)
	now := time.Now()

	for i := 0; i < 10; i++ {
		b.Push(Notification{RefugeName: string(rune('a' + i)), Timestamp: now})
	}

	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (max buffer)", b.Len())
	}

	visible := b.Visible()
	if visible[0].RefugeName != "i" {
		t.Errorf("visible[0] = %q, want i", visible[0].RefugeName)
	}
	if visible[1].RefugeName != "j" {
		t.Errorf("visible[1] = %q, want j", visible[1].RefugeName)
	}
}

func TestBar_ClearFor(t *testing.T) {
	b := NewBar(20)
	now := time.Now()

	b.Push(Notification{RefugeName: "Bonatti", Date: night, Timestamp: now})
	b.Push(Notification{RefugeName: "Nova", Date: night, Timestamp: now})
	b.Push(Notification{RefugeName: "Bonatti", Date: nextNight, Timestamp: now})
	b.Push(Notification{RefugeName: "Nova", Date: night, Timestamp: now})

	b.ClearFor("Nova", night)

	if b.Len() != 2 {
		t.Errorf("after clear: Len() = %d, want 2", b.Len())
	}
	for _, n := range b.Visible() {
		if n.RefugeName == "Nova" {
			t.Error("cleared refuge should not appear in visible items")
		}
	}
}

func TestBar_Render(t *testing.T) {
	b := NewBar(20)
	now := time.Now()

	b.Push(NotificationFrom(poller.EntryState{
		Target:         poller.Target{Refuge: refuges.Refuge{Name: "Refuge Bonatti"}, Date: night},
		PreviousStatus: poller.StatusFull,
		Status:         poller.StatusAvailable,
		Availability:   refuges.Availability{Places: 4},
		LastPollTime:   now.Add(-2 * time.Minute),
	}))

	result := b.Render(80, now)
	for _, want := range []string{"Refuge Bonatti", "Sep 11", "FULL", "4 places", "2m ago"} {
		if !strings.Contains(result, want) {
			t.Errorf("render should contain %q, got: %q", want, result)
		}
	}
}

func TestBar_RenderEmpty(t *testing.T) {
	b := NewBar(20)
	if b.Render(80, time.Now()) != "" {
		t.Error("empty bar should render empty string")
	}
}

func TestBar_RenderTruncation(t *testing.T) {
	b := NewBar(20)
	now := time.Now()

	b.Push(Notification{RefugeName: "Auberge-Refuge de la Nova", OldStatus: poller.StatusFull, NewStatus: poller.StatusAvailable, Places: 5, Timestamp: now})
	b.Push(Notification{RefugeName: "Rifugio Elena", OldStatus: poller.StatusFull, NewStatus: poller.StatusUnreachable, Timestamp: now})

	result := b.Render(30, now)
	runes := []rune(result)
	if len(runes) > 30 {
		t.Errorf("render should be truncated to 30 runes, got %d: %q", len(runes), result)
	}
	if !strings.HasSuffix(result, "…") {
		t.Errorf("truncated render should end with an ellipsis, got %q", result)
	}
}
