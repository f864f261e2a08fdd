package notify

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/JPM1118/refugewatch/internal/poller"
)

// Noise pattern: rounds of bursts of beeps.
const (
	noiseRounds   = 5
	noiseBursts   = 3
	noiseBeeps    = 4
	beepLength    = 100 * time.Millisecond
	beepGap       = 50 * time.Millisecond
	burstGap      = 500 * time.Millisecond
	roundGap      = time.Second
	bellCharacter = "\a"
)

// Bell manages terminal bell notifications with debounce and a silent mode.
type Bell struct {
	out      io.Writer
	sleep    func(time.Duration)
	debounce time.Duration
	lastRing time.Time
	silent   bool
}

// NewBell creates a Bell writing to stderr with the given debounce interval.
func NewBell(debounce time.Duration) *Bell {
	return &Bell{
		out:      os.Stderr,
		sleep:    time.Sleep,
		debounce: debounce,
	}
}

// WithOutput redirects the bell, for tests.
func (b *Bell) WithOutput(w io.Writer, sleep func(time.Duration)) *Bell {
	b.out = w
	if sleep != nil {
		b.sleep = sleep
	}
	return b
}

// Ring rings the bell once if status is worth an alert.
// Returns true if the bell actually rang.
func (b *Bell) Ring(status poller.Status, now time.Time) bool {
	if b.silent {
		return false
	}
	if !status.Alerting() {
		return false
	}
	if now.Sub(b.lastRing) < b.debounce {
		return false
	}

	io.WriteString(b.out, bellCharacter)
	b.lastRing = now
	return true
}

// Noise plays the full alert pattern, about twenty seconds of beeping.
// It returns early when ctx is cancelled and does nothing in silent mode.
// Returns the number of beeps played.
func (b *Bell) Noise(ctx context.Context) int {
	if b.silent {
		return 0
	}
	beeps := 0
	for round := 0; round < noiseRounds; round++ {
		for burst := 0; burst < noiseBursts; burst++ {
			for beep := 0; beep < noiseBeeps; beep++ {
				if ctx.Err() != nil {
					return beeps
				}
				io.WriteString(b.out, bellCharacter)
				beeps++
				b.sleep(beepLength)
				b.sleep(beepGap)
			}
			b.sleep(burstGap)
		}
		b.sleep(roundGap)
	}
	return beeps
}

// SetSilent turns the audible alert off or on.
func (b *Bell) SetSilent(silent bool) {
	b.silent = silent
}

// Silent reports whether audible alerts are off.
func (b *Bell) Silent() bool {
	return b.silent
}
