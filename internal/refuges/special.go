package refuges

// LacBlancID is the synthetic id given to Refuge du Lac Blanc, which takes
// bookings on its own site.
const LacBlancID = 90001

type specialProbe struct {
	refuge       Refuge
	url          func(Endpoints) string
	closedMarker string
}

var specialProbes = map[int]specialProbe{
	LacBlancID: {
		refuge:       Refuge{ID: LacBlancID, Name: "Refuge du Lac Blanc", Special: true},
		url:          func(e Endpoints) string { return e.LacBlanc },
		closedMarker: "Reservations are not possible at this time",
	},
}

// SpecialRefuges returns the refuges probed outside the booking site.
func SpecialRefuges() []Refuge {
	out := make([]Refuge, 0, len(specialProbes))
	for _, p := range specialProbes {
		out = append(out, p.refuge)
	}
	sortByName(out)
	return out
}
