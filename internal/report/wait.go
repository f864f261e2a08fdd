package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	waitLabel = "Waiting to check availability:"
	waitTick  = 500 * time.Millisecond
	barWidth  = 80
)

// Wait blocks until next, drawing a countdown bar on terminals. It returns
// ctx.Err() if ctx is cancelled first.
func (p *Printer) Wait(ctx context.Context, next time.Time) error {
	return p.wait(ctx, next, time.Now, waitTick)
}

func (p *Printer) wait(ctx context.Context, next time.Time, now func() time.Time, tick time.Duration) error {
	total := next.Sub(now())
	if total <= 0 {
		return ctx.Err()
	}
	width := barWidth
	if w := Width(p.out, barWidth); w < width {
		width = w
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	if p.terminal {
		fmt.Fprintln(p.out)
		defer io.WriteString(p.out, "\r"+strings.Repeat(" ", width)+"\r")
	}

	for {
		remaining := next.Sub(now())
		if remaining <= 0 {
			return nil
		}
		if p.terminal {
			io.WriteString(p.out, "\r"+WaitBar(remaining, total, width))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitBar renders the countdown line for the given remaining time, fitted
// to width columns. The bar fills up as the wait elapses.
func WaitBar(remaining, total time.Duration, width int) string {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}
	prefix := fmt.Sprintf("%s %s ", waitLabel, remaining.Round(time.Second))
	slots := width - len(prefix) - 2
	if slots < 1 {
		return strings.TrimSpace(prefix)
	}
	done := slots
	if total > 0 {
		done = int(float64(slots) * float64(total-remaining) / float64(total))
	}
	return prefix + "[" + strings.Repeat("#", done) + strings.Repeat(" ", slots-done) + "]"
}
