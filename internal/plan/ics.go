package plan

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ExportICS writes the plan as an iCalendar document with one all-day event
// per planned refuge and night.
func (p *Plan) ExportICS(w io.Writer) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//refugewatch//plan//EN")

	now := time.Now().UTC()
	for _, d := range p.Days() {
		for _, r := range d.Refuges {
			event := cal.AddEvent(fmt.Sprintf("%s-%d@refugewatch", d.Date, r.ID))
			event.SetDtStampTime(now)
			event.SetAllDayStartAt(d.Date.Time())
			event.SetAllDayEndAt(d.Date.AddDays(1).Time())
			event.SetSummary(fmt.Sprintf("Night at %s", r.Name))
			event.SetDescription(fmt.Sprintf("Refuge id %d", r.ID))
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}
