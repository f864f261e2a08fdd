package refuges

import "context"

// Source provides the refuge catalogue and availability data.
// Client implements this interface. Tests can provide mock implementations.
type Source interface {
	Refuges(ctx context.Context) ([]Refuge, error)
	Regions(ctx context.Context) ([]Region, error)
	Planning(ctx context.Context, refugeID int, date Date) (map[Date]Availability, error)
	SpecialAvailability(ctx context.Context, r Refuge) (Availability, error)
}
