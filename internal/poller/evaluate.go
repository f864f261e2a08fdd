package poller

import (
	"github.com/JPM1118/refugewatch/internal/refuges"
)

// Status is the alerting classification of one target.
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusFull        Status = "FULL"
	StatusClosed      Status = "CLOSED"
	StatusNotBookable Status = "NOT_BOOKABLE"
	StatusOpenUnknown Status = "OPEN_UNKNOWN"
	StatusUnknown     Status = "UNKNOWN"
	StatusError       Status = "ERROR"
	StatusUnreachable Status = "UNREACHABLE"
)

// Alerting reports whether the status should wake the user up.
func (s Status) Alerting() bool {
	return s == StatusAvailable || s == StatusOpenUnknown
}

// Evaluate classifies an availability against the alert threshold.
// A refuge alerts only when it has strictly more than minPlaces free.
func Evaluate(av refuges.Availability, minPlaces int) Status {
	switch {
	case av.Closed:
		return StatusClosed
	case !av.PlacesKnown && av.Bookable:
		return StatusOpenUnknown
	case !av.PlacesKnown && av.Retrieved.IsZero():
		return StatusUnknown
	case !av.PlacesKnown:
		return StatusNotBookable
	case av.Places > minPlaces:
		return StatusAvailable
	default:
		return StatusFull
	}
}
