package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/refuges"
)

// Alert announces free places at a refuge on a night.
type Alert struct {
	Refuge refuges.Refuge
	Date   refuges.Date
	Status poller.Status
	Places int
	At     time.Time
}

// AlertFrom builds an alert from a polled target.
func AlertFrom(s poller.EntryState) Alert {
	return Alert{
		Refuge: s.Target.Refuge,
		Date:   s.Target.Date,
		Status: s.Status,
		Places: s.Availability.Places,
		At:     s.LastPollTime,
	}
}

// Text renders the alert as a one-line message.
func (a Alert) Text() string {
	if a.Status == poller.StatusOpenUnknown {
		return fmt.Sprintf("%s: check not possible, but it looks like booking is open for %s!", a.Refuge.Name, a.Date.Long())
	}
	return fmt.Sprintf("%s: %d places left on %s!", a.Refuge.Name, a.Places, a.Date.Long())
}

// NewlyAlerting returns the targets of u that started alerting in that
// cycle: either they changed status or this was their first check.
func NewlyAlerting(u poller.Update) []poller.EntryState {
	var out []poller.EntryState
	for _, s := range u.Found {
		if !s.LastPollTime.Equal(u.At) {
			continue
		}
		if s.PreviousStatus == "" || s.IsTransition() {
			out = append(out, s)
		}
	}
	return out
}

// Notifier delivers alerts somewhere outside the terminal.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every notifier. All notifiers are tried; their
// errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
