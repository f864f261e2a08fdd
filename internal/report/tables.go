package report

import (
	"fmt"
	"io"

	"github.com/JPM1118/refugewatch/internal/history"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/rodaine/table"
)

// Regions prints regions with their refuge counts.
func Regions(w io.Writer, regions []refuges.Region) {
	tbl := table.New("Region", "Refuges").WithWriter(w)
	for _, r := range regions {
		tbl.AddRow(r.Name, len(r.RefugeIDs))
	}
	tbl.Print()
}

// History prints availability observations, newest first.
func History(w io.Writer, obs []history.Observation) {
	if len(obs) == 0 {
		fmt.Fprintln(w, "No observations recorded yet.")
		return
	}
	tbl := table.New("Checked", "Status", "Places").WithWriter(w)
	for _, o := range obs {
		places := "-"
		if o.PlacesKnown {
			places = fmt.Sprint(o.Places)
		}
		tbl.AddRow(o.At.Local().Format("2006-01-02 15:04:05"), o.Status, places)
	}
	tbl.Print()
}
