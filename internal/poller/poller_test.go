package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/JPM1118/refugewatch/internal/testutil"
)

type recordedObs struct {
	refugeID int
	status   string
}

type fakeRecorder struct {
	mu   sync.Mutex
	obs  []recordedObs
	fail error
}

func (f *fakeRecorder) RecordAvailability(_ context.Context, r refuges.Refuge, _ refuges.Date, _ refuges.Availability, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, recordedObs{refugeID: r.ID, status: status})
	return f.fail
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.obs)
}

func newTestPoller(t *testing.T, src refuges.Source, interval time.Duration, opts ...Option) *Poller {
	t.Helper()
	cache := NewCache(src, interval)
	p, err := New(cache, Config{
		RefreshTimeout: interval,
		RequestTimeout: 500 * time.Millisecond,
		MinPlaces:      3,
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestPoller_OnceClassifiesTargets(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	src.SetDay(bonatti.ID, night, 2, false)
	src.SetDay(bonatti.ID, night.AddDays(1), 0, true)

	p := newTestPoller(t, src, time.Minute)
	p.SetTargets([]Target{
		{Refuge: nova, Date: night},
		{Refuge: bonatti, Date: night},
		{Refuge: bonatti, Date: night.AddDays(1)},
	})

	u := p.Once(context.Background())
	if len(u.States) != 3 {
		t.Fatalf("States = %d, want 3", len(u.States))
	}
	want := []Status{StatusAvailable, StatusFull, StatusClosed}
	for i, s := range u.States {
		if s.Status != want[i] {
			t.Errorf("state[%d] (%s) = %s, want %s", i, s.Target.Refuge.Name, s.Status, want[i])
		}
	}
	if len(u.Found) != 1 || u.Found[0].Target.Refuge.ID != nova.ID {
		t.Errorf("Found = %+v, want only Nova", u.Found)
	}
	// Bonatti's two nights share one planning request.
	if n := src.GetPlanningCalls(); n != 2 {
		t.Errorf("Planning calls = %d, want 2", n)
	}
}

func TestPoller_OnceUsesCacheWithinTTL(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	rec := &fakeRecorder{}

	p := newTestPoller(t, src, time.Hour, WithRecorder(rec))
	p.SetTargets([]Target{{Refuge: nova, Date: night}})

	p.Once(context.Background())
	p.Once(context.Background())

	if n := src.GetPlanningCalls(); n != 1 {
		t.Errorf("Planning calls = %d, want 1", n)
	}
	if rec.count() != 1 {
		t.Errorf("recorded %d observations, want 1 (cache hits are not recorded)", rec.count())
	}
}

func TestPoller_ErrorsDoNotAbortCycle(t *testing.T) {
	src := &testutil.MockSource{
		Special: map[int]refuges.Availability{},
	}
	src.SetDay(nova.ID, night, 4, false)
	src.SpecialErr = errors.New("lac blanc down")

	rec := &fakeRecorder{fail: errors.New("disk full")}
	p := newTestPoller(t, src, time.Minute, WithRecorder(rec))
	p.SetTargets([]Target{
		{Refuge: lacBlanc, Date: night},
		{Refuge: nova, Date: night},
	})

	u := p.Once(context.Background())
	if u.States[0].Status != StatusError || u.States[0].LastError == "" {
		t.Errorf("failing target = %+v, want ERROR with message", u.States[0])
	}
	if u.States[1].Status != StatusAvailable {
		t.Errorf("healthy target = %s, want AVAILABLE", u.States[1].Status)
	}
}

func TestPoller_FetchErrorAfterAvailable(t *testing.T) {
	now := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 6, false)

	cache := NewCache(src, time.Minute, WithClock(clock))
	p, err := New(cache, Config{RefreshTimeout: time.Minute, RequestTimeout: time.Second, MinPlaces: 3}, WithPollerClock(clock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.SetTargets([]Target{{Refuge: nova, Date: night}})

	u := p.Once(context.Background())
	if u.States[0].Status != StatusAvailable || len(u.Found) != 1 {
		t.Fatalf("first cycle = %+v, want AVAILABLE and found", u.States[0])
	}

	src.SetPlanningErr(errors.New("connection refused"))
	now = now.Add(2 * time.Minute)
	u = p.Once(context.Background())

	if u.States[0].Status != StatusError {
		t.Errorf("status = %s, want ERROR after a failed check", u.States[0].Status)
	}
	if len(u.Found) != 0 {
		t.Errorf("Found = %d entries, want none when the check failed", len(u.Found))
	}
	if len(u.Transitions) != 1 {
		t.Errorf("AVAILABLE → ERROR should be reported, got %d transitions", len(u.Transitions))
	}
}

func TestPoller_BackoffSkipsFailingTarget(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetPlanningErr(errors.New("timeout"))

	p := newTestPoller(t, src, time.Minute)
	p.SetTargets([]Target{{Refuge: nova, Date: night}})

	p.Once(context.Background())
	p.Once(context.Background())

	if n := src.GetPlanningCalls(); n != 1 {
		t.Errorf("Planning calls = %d, want 1 (second cycle in backoff)", n)
	}
}

func TestPoller_TransitionsReportedOnce(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 0, false)

	p := newTestPoller(t, src, time.Millisecond)
	p.SetTargets([]Target{{Refuge: nova, Date: night}})

	if u := p.Once(context.Background()); len(u.Transitions) != 0 {
		t.Errorf("first cycle transitions = %d, want 0", len(u.Transitions))
	}

	src.SetDay(nova.ID, night, 6, false)
	time.Sleep(5 * time.Millisecond)
	u := p.Once(context.Background())
	if len(u.Transitions) != 1 || u.Transitions[0].Status != StatusAvailable {
		t.Fatalf("transitions = %+v, want FULL → AVAILABLE", u.Transitions)
	}

	time.Sleep(5 * time.Millisecond)
	if u := p.Once(context.Background()); len(u.Transitions) != 0 {
		t.Errorf("steady state transitions = %d, want 0", len(u.Transitions))
	}
}

func TestPoller_SetTargetsDropsOldState(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)
	src.SetDay(bonatti.ID, night, 4, false)

	p := newTestPoller(t, src, time.Minute)
	p.SetTargets([]Target{{Refuge: nova, Date: night}, {Refuge: bonatti, Date: night}})
	p.Once(context.Background())

	p.SetTargets([]Target{{Refuge: bonatti, Date: night}})
	u := p.Once(context.Background())
	if len(u.States) != 1 || u.States[0].Target.Refuge.ID != bonatti.ID {
		t.Errorf("States = %+v, want only Bonatti", u.States)
	}
	if len(p.Targets()) != 1 {
		t.Errorf("Targets() = %d, want 1", len(p.Targets()))
	}
}

func TestPoller_ReceivesUpdate(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)

	p := newTestPoller(t, src, 100*time.Millisecond)
	p.SetTargets([]Target{{Refuge: nova, Date: night}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Start(ctx)

	select {
	case u := <-p.Updates():
		if len(u.States) != 1 || u.States[0].Status != StatusAvailable {
			t.Errorf("update = %+v", u.States)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for poller update")
	}
}

func TestPoller_TriggerNow(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)

	p := newTestPoller(t, src, 10*time.Second)
	p.SetTargets([]Target{{Refuge: nova, Date: night}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Start(ctx)

	select {
	case <-p.Updates():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for initial update")
	}

	p.Refresh()

	select {
	case <-p.Updates():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for triggered update")
	}
	if n := src.GetPlanningCalls(); n != 2 {
		t.Errorf("Planning calls = %d, want 2 (refresh bypasses cache)", n)
	}
}

func TestPoller_Stop(t *testing.T) {
	src := &testutil.MockSource{}
	src.SetDay(nova.ID, night, 4, false)

	p := newTestPoller(t, src, 50*time.Millisecond)
	p.SetTargets([]Target{{Refuge: nova, Date: night}})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	select {
	case <-p.Updates():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for initial update")
	}

	cancel()
	time.Sleep(100 * time.Millisecond)

	// Drain anything in flight, then nothing more should arrive.
	for len(p.Updates()) > 0 {
		<-p.Updates()
	}
	select {
	case <-p.Updates():
		t.Error("received update after stop")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2024, 8, 1, 12, 1, 30, 0, time.UTC)

	s, err := ParseSchedule("", 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Next(base); !got.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("interval Next = %v", got)
	}

	s, err = ParseSchedule("*/5 * * * *", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Next(base); !got.Equal(time.Date(2024, 8, 1, 12, 5, 0, 0, time.UTC)) {
		t.Errorf("cron Next = %v, want 12:05", got)
	}

	if _, err := ParseSchedule("every tuesday", time.Minute); err == nil {
		t.Error("invalid cron spec should fail")
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(NewCache(&testutil.MockSource{}, time.Minute), Config{Schedule: "nonsense"})
	if err == nil {
		t.Fatal("New should reject an invalid schedule")
	}
}
