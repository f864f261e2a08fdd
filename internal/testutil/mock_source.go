package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/JPM1118/refugewatch/internal/refuges"
)

// MockSource implements refuges.Source for testing.
type MockSource struct {
	mu sync.Mutex

	RefugeList  []refuges.Refuge
	RefugesErr  error
	RegionList  []refuges.Region
	RegionsErr  error
	Days        map[int]map[refuges.Date]refuges.Availability
	PlanningErr error
	Special     map[int]refuges.Availability
	SpecialErr  error

	// Delay is applied to every Planning call, to widen race windows.
	Delay time.Duration

	PlanningCalls int
	SpecialCalls  int
}

var _ refuges.Source = (*MockSource)(nil)

func (m *MockSource) Refuges(_ context.Context) ([]refuges.Refuge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]refuges.Refuge(nil), m.RefugeList...), m.RefugesErr
}

func (m *MockSource) Regions(_ context.Context) ([]refuges.Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]refuges.Region(nil), m.RegionList...), m.RegionsErr
}

func (m *MockSource) Planning(ctx context.Context, refugeID int, _ refuges.Date) (map[refuges.Date]refuges.Availability, error) {
	m.mu.Lock()
	delay := m.Delay
	m.PlanningCalls++
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlanningErr != nil {
		return nil, m.PlanningErr
	}
	out := make(map[refuges.Date]refuges.Availability, len(m.Days[refugeID]))
	for d, av := range m.Days[refugeID] {
		out[d] = av
	}
	return out, nil
}

func (m *MockSource) SpecialAvailability(_ context.Context, r refuges.Refuge) (refuges.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SpecialCalls++
	if m.SpecialErr != nil {
		return refuges.Availability{}, m.SpecialErr
	}
	return m.Special[r.ID], nil
}

// SetDay sets the availability the vendor reports for a refuge on a date.
func (m *MockSource) SetDay(refugeID int, date refuges.Date, places int, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Days == nil {
		m.Days = make(map[int]map[refuges.Date]refuges.Availability)
	}
	if m.Days[refugeID] == nil {
		m.Days[refugeID] = make(map[refuges.Date]refuges.Availability)
	}
	m.Days[refugeID][date] = refuges.Availability{
		Places:      places,
		PlacesKnown: true,
		Closed:      closed,
		Bookable:    true,
		Retrieved:   time.Now(),
	}
}

// SetPlanningErr updates the planning error in a thread-safe manner.
func (m *MockSource) SetPlanningErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlanningErr = err
}

// GetPlanningCalls returns the number of Planning calls in a thread-safe manner.
func (m *MockSource) GetPlanningCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PlanningCalls
}

// GetSpecialCalls returns the number of SpecialAvailability calls.
func (m *MockSource) GetSpecialCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SpecialCalls
}
