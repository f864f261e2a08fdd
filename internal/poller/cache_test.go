package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/JPM1118/refugewatch/internal/testutil"
)

var (
	nova     = refuges.Refuge{ID: 32367, Name: "Auberge-Refuge de la Nova"}
	bonatti  = refuges.Refuge{ID: 32380, Name: "Refuge Bonatti"}
	lacBlanc = refuges.Refuge{ID: refuges.LacBlancID, Name: "Refuge du Lac Blanc", Special: true}
	night    = refuges.Date{Year: 2024, Month: time.September, Day: 11}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCache_HitWithinTTL(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	clock := newClock()
	c := NewCache(src, 5*time.Minute, WithClock(clock.Now))

	av, hit, err := c.Get(context.Background(), nova, night)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Error("first Get should miss")
	}
	if av.Places != 4 {
		t.Errorf("Places = %d, want 4", av.Places)
	}
	if !av.Retrieved.Equal(clock.Now()) {
		t.Errorf("Retrieved should be stamped with the cache clock, got %v", av.Retrieved)
	}

	clock.Advance(4*time.Minute + 59*time.Second)
	_, hit, err = c.Get(context.Background(), nova, night)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("Get within TTL should hit")
	}
	if n := src.GetPlanningCalls(); n != 1 {
		t.Errorf("Planning called %d times, want 1", n)
	}
}

func TestCache_RefetchAtTTL(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	clock := newClock()
	c := NewCache(src, 5*time.Minute, WithClock(clock.Now))

	if _, _, err := c.Get(context.Background(), nova, night); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Minute)
	if !c.Stale(Key{RefugeID: nova.ID, Date: night}) {
		t.Error("entry retrieved exactly TTL ago should be stale")
	}

	src.SetDay(nova.ID, night, 1, false)
	av, hit, err := c.Get(context.Background(), nova, night)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("stale entry should be refetched")
	}
	if av.Places != 1 {
		t.Errorf("Places = %d, want refreshed value 1", av.Places)
	}
}

func TestCache_WindowWarmsNeighbouringDays(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	src.SetDay(nova.ID, night.AddDays(1), 0, true)
	c := NewCache(src, time.Minute)

	if _, _, err := c.Get(context.Background(), nova, night); err != nil {
		t.Fatal(err)
	}
	av, hit, err := c.Get(context.Background(), nova, night.AddDays(1))
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("day from the same planning window should be served from cache")
	}
	if !av.Closed {
		t.Error("second day should be closed")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_KeyedByRefuge(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	src.SetDay(bonatti.ID, night, 9, false)
	c := NewCache(src, time.Minute)

	a, _, _ := c.Get(context.Background(), nova, night)
	b, hit, _ := c.Get(context.Background(), bonatti, night)
	if hit {
		t.Error("a different refuge on the same date must not hit")
	}
	if a.Places != 4 || b.Places != 9 {
		t.Errorf("places = %d/%d, want 4/9", a.Places, b.Places)
	}
}

func TestCache_MissingDateNotCached(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	c := NewCache(src, time.Minute)

	far := night.AddDays(60)
	av, _, err := c.Get(context.Background(), nova, far)
	if err != nil {
		t.Fatal(err)
	}
	if av != (refuges.Availability{}) {
		t.Errorf("missing date should give zero availability, got %+v", av)
	}
	if Evaluate(av, 3) != StatusUnknown {
		t.Errorf("missing date should evaluate to UNKNOWN")
	}

	if _, hit, _ := c.Get(context.Background(), nova, far); hit {
		t.Error("missing date should not be served from cache")
	}
}

func TestCache_ErrorNotCached(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	src.SetPlanningErr(errors.New("502"))
	c := NewCache(src, time.Minute)

	if _, _, err := c.Get(context.Background(), nova, night); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Errorf("failed fetch should not populate cache, Len() = %d", c.Len())
	}

	src.SetPlanningErr(nil)
	av, _, err := c.Get(context.Background(), nova, night)
	if err != nil || av.Places != 4 {
		t.Errorf("recovery Get = %+v, %v", av, err)
	}
}

func TestCache_SpecialRefuge(t *testing.T) {
	src := &testutil.MockSource{
		Special: map[int]refuges.Availability{refuges.LacBlancID: {Bookable: true}},
	}
	clock := newClock()
	c := NewCache(src, time.Minute, WithClock(clock.Now))

	av, _, err := c.Get(context.Background(), lacBlanc, night)
	if err != nil {
		t.Fatal(err)
	}
	if Evaluate(av, 3) != StatusOpenUnknown {
		t.Errorf("open special refuge should be OPEN_UNKNOWN, got %s", Evaluate(av, 3))
	}
	if _, hit, _ := c.Get(context.Background(), lacBlanc, night); !hit {
		t.Error("special availability should be cached too")
	}
	if src.GetSpecialCalls() != 1 || src.GetPlanningCalls() != 0 {
		t.Errorf("calls special=%d planning=%d, want 1/0", src.GetSpecialCalls(), src.GetPlanningCalls())
	}
}

func TestCache_ConcurrentGetsShareOneFetch(t *testing.T) {
	src := &testutil.MockSource{Delay: 50 * time.Millisecond}
	src.SetDay(nova.ID, night, 4, false)
	c := NewCache(src, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Get(context.Background(), nova, night); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := src.GetPlanningCalls(); n != 1 {
		t.Errorf("Planning called %d times, want 1", n)
	}
}

func TestCache_Invalidate(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	c := NewCache(src, time.Hour)

	_, _, _ = c.Get(context.Background(), nova, night)
	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Invalidate", c.Len())
	}
	if _, hit, _ := c.Get(context.Background(), nova, night); hit {
		t.Error("Get after Invalidate should fetch")
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	c := NewCache(&testutil.MockSource{}, 0)
	if c.TTL() != DefaultRefreshTimeout {
		t.Errorf("TTL() = %s, want %s", c.TTL(), DefaultRefreshTimeout)
	}
}

func TestCache_SpecialRefugeProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	client := refuges.NewClient(refuges.ClientConfig{
		Endpoints:         refuges.Endpoints{LacBlanc: srv.URL},
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
	})

	av, _, err := NewCache(client, time.Minute).Get(context.Background(), lacBlanc, night)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Evaluate(av, 3); got != StatusNotBookable {
		t.Errorf("status = %s, want NOT_BOOKABLE when the booking page is down", got)
	}
}

func TestCache_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	src := &testutil.MockSource{Delay: 150 * time.Millisecond}
	src.SetDay(nova.ID, night, 4, false)
	c := NewCache(src, time.Minute)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var shortErr, longErr error
	var longAv refuges.Availability
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, shortErr = c.Get(short, nova, night)
	}()
	go func() {
		defer wg.Done()
		longAv, _, longErr = c.Get(context.Background(), nova, night)
	}()
	wg.Wait()

	if !errors.Is(shortErr, context.DeadlineExceeded) {
		t.Errorf("short caller err = %v, want deadline exceeded", shortErr)
	}
	if longErr != nil || longAv.Places != 4 {
		t.Errorf("waiting caller = %+v, %v, want the fetched value", longAv, longErr)
	}
	if n := src.GetPlanningCalls(); n != 1 {
		t.Errorf("Planning calls = %d, want 1 shared fetch", n)
	}
}
