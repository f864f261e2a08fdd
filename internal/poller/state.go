package poller

import (
	"time"

	"github.com/JPM1118/refugewatch/internal/refuges"
)

const (
	// MaxBackoff is the maximum interval between polls for failing targets.
	MaxBackoff = time.Hour

	// UnreachableThreshold is the number of consecutive failures before
	// a target is marked UNREACHABLE.
	UnreachableThreshold = 3
)

// Target is one refuge watched on one night.
type Target struct {
	Refuge refuges.Refuge
	Date   refuges.Date
}

// Key returns the cache key of the target.
func (t Target) Key() Key {
	return Key{RefugeID: t.Refuge.ID, Date: t.Date}
}

// EntryState tracks the polled state of a single target.
type EntryState struct {
	Target         Target
	Status         Status
	PreviousStatus Status
	Availability   refuges.Availability
	LastPollTime   time.Time
	ConsecFails    int
	BackoffUntil   time.Time
	LastError      string
}

// ShouldPoll returns true if this target is ready to be polled.
func (s *EntryState) ShouldPoll(now time.Time) bool {
	return !now.Before(s.BackoffUntil)
}

// RecordSuccess records a successful poll result.
// Returns true if the status changed (a transition occurred).
func (s *EntryState) RecordSuccess(status Status, av refuges.Availability, now time.Time) bool {
	s.PreviousStatus = s.Status
	s.Status = status
	s.Availability = av
	s.LastPollTime = now
	s.ConsecFails = 0
	s.BackoffUntil = time.Time{}
	s.LastError = ""
	return s.IsTransition()
}

// RecordFailure records a failed poll attempt and calculates backoff.
// The status becomes ERROR, or UNREACHABLE once failures pile up, so a
// target never keeps alerting on data that could not be refreshed. The last
// good availability is kept for display.
func (s *EntryState) RecordFailure(baseInterval time.Duration, now time.Time, err error) {
	s.ConsecFails++
	s.LastPollTime = now
	if err != nil {
		s.LastError = err.Error()
	}

	// base * 2^(fails-1), capped at MaxBackoff
	backoff := baseInterval
	for i := 1; i < s.ConsecFails; i++ {
		backoff *= 2
		if backoff > MaxBackoff {
			backoff = MaxBackoff
			break
		}
	}
	s.BackoffUntil = now.Add(backoff)

	s.PreviousStatus = s.Status
	if s.ConsecFails >= UnreachableThreshold {
		s.Status = StatusUnreachable
	} else {
		s.Status = StatusError
	}
}

// IsTransition returns true if the current status differs from the previous.
func (s *EntryState) IsTransition() bool {
	return s.PreviousStatus != "" && s.PreviousStatus != s.Status
}
