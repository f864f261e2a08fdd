package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JPM1118/refugewatch/internal/logx"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"github.com/robfig/cron/v3"
)

// Config holds poller configuration.
type Config struct {
	// RefreshTimeout is both the cache TTL and the default poll interval.
	RefreshTimeout time.Duration
	// Schedule is an optional cron spec ("*/5 * * * *", "@every 10m")
	// overriding the RefreshTimeout interval.
	Schedule       string
	RequestTimeout time.Duration
	MinPlaces      int
}

// Recorder persists fetched availabilities. history.Store implements it.
type Recorder interface {
	RecordAvailability(ctx context.Context, r refuges.Refuge, date refuges.Date, av refuges.Availability, status string) error
}

// Update is sent to consumers after every poll cycle.
type Update struct {
	At          time.Time
	States      []EntryState // in target order
	Found       []EntryState // targets alerting this cycle
	Transitions []EntryState // targets whose status changed this cycle
}

// Poller checks a set of targets through the availability cache on a
// schedule.
type Poller struct {
	cache    *Cache
	cfg      Config
	schedule cron.Schedule
	log      logx.Logger
	rec      Recorder
	now      func() time.Time

	mu      sync.Mutex
	targets []Target
	states  map[Key]*EntryState
	nextRun time.Time

	updateCh  chan Update
	triggerCh chan struct{}
}

// Option customises a Poller.
type Option func(*Poller)

// WithRecorder stores every fetched availability.
func WithRecorder(r Recorder) Option {
	return func(p *Poller) { p.rec = r }
}

// WithPollerLogger sets the poller logger.
func WithPollerLogger(l logx.Logger) Option {
	return func(p *Poller) { p.log = l }
}

// WithPollerClock replaces time.Now, for tests.
func WithPollerClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// every is a fixed-interval schedule. Unlike cron.Every it keeps
// sub-second precision.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// ParseSchedule returns the cron schedule for spec, or a fixed interval
// when spec is empty.
func ParseSchedule(spec string, interval time.Duration) (cron.Schedule, error) {
	if spec == "" {
		return every(interval), nil
	}
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// New creates a poller. Call Start() to begin polling or Once() to run a
// single cycle.
func New(cache *Cache, cfg Config, opts ...Option) (*Poller, error) {
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = cache.TTL()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	sched, err := ParseSchedule(cfg.Schedule, cfg.RefreshTimeout)
	if err != nil {
		return nil, err
	}
	p := &Poller{
		cache:     cache,
		cfg:       cfg,
		schedule:  sched,
		log:       logx.Nop(),
		now:       time.Now,
		states:    make(map[Key]*EntryState),
		updateCh:  make(chan Update, 4),
		triggerCh: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// SetTargets replaces the watch list. State of targets still watched is
// kept.
func (p *Poller) SetTargets(targets []Target) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.targets = append([]Target(nil), targets...)
	keep := make(map[Key]bool, len(targets))
	for _, t := range targets {
		keep[t.Key()] = true
	}
	for k := range p.states {
		if !keep[k] {
			delete(p.states, k)
		}
	}
}

// Targets returns the current watch list.
func (p *Poller) Targets() []Target {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Target(nil), p.targets...)
}

// MinPlaces returns the alert threshold.
func (p *Poller) MinPlaces() int { return p.cfg.MinPlaces }

// NextRun returns when the next scheduled cycle is due after now.
func (p *Poller) NextRun(now time.Time) time.Time {
	return p.schedule.Next(now)
}

// Updates returns the channel that receives cycle results.
func (p *Poller) Updates() <-chan Update {
	return p.updateCh
}

// Start begins the polling loop in the background. It stops when ctx is
// cancelled.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// TriggerNow requests an immediate poll cycle.
func (p *Poller) TriggerNow() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// Already triggered, skip
	}
}

// Refresh drops cached availability and polls immediately.
func (p *Poller) Refresh() {
	p.cache.Invalidate()
	p.mu.Lock()
	for _, s := range p.states {
		s.BackoffUntil = time.Time{}
	}
	p.mu.Unlock()
	p.TriggerNow()
}

func (p *Poller) run(ctx context.Context) {
	p.emit(p.Once(ctx))

	for {
		wait := p.NextRun(p.now()).Sub(p.now())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.emit(p.Once(ctx))
		case <-p.triggerCh:
			timer.Stop()
			p.emit(p.Once(ctx))
		}
	}
}

// Once runs a single poll cycle over every target and returns the result.
// Fetch errors are recorded on the target's state; they never abort the
// cycle.
func (p *Poller) Once(ctx context.Context) Update {
	now := p.now()
	targets := p.Targets()

	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		k := t.Key()

		p.mu.Lock()
		state, exists := p.states[k]
		if !exists {
			state = &EntryState{Target: t}
			p.states[k] = state
		}
		state.Target = t
		shouldPoll := state.ShouldPoll(now)
		p.mu.Unlock()

		if !shouldPoll {
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		av, hit, err := p.cache.Get(fetchCtx, t.Refuge, t.Date)
		cancel()

		log := p.log.With(logx.String("refuge", t.Refuge.Name), logx.String("date", t.Date.String()))
		if err != nil {
			log.Warn("availability check failed", logx.Err(err))
			p.mu.Lock()
			state.RecordFailure(p.cfg.RefreshTimeout, now, err)
			p.mu.Unlock()
			continue
		}

		status := Evaluate(av, p.cfg.MinPlaces)
		p.mu.Lock()
		changed := state.RecordSuccess(status, av, now)
		p.mu.Unlock()

		if changed {
			log.Info("status changed", logx.String("from", string(state.PreviousStatus)), logx.String("to", string(status)))
		}
		if !hit && p.rec != nil {
			if err := p.rec.RecordAvailability(ctx, t.Refuge, t.Date, av, string(status)); err != nil {
				log.Warn("history record failed", logx.Err(err))
			}
		}
	}

	return p.snapshot(now, targets)
}

func (p *Poller) snapshot(now time.Time, targets []Target) Update {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := Update{At: now, States: make([]EntryState, 0, len(targets))}
	for _, t := range targets {
		s, ok := p.states[t.Key()]
		if !ok {
			continue
		}
		cp := *s
		cp.Target = t
		u.States = append(u.States, cp)
		if cp.Status.Alerting() {
			u.Found = append(u.Found, cp)
		}
		if cp.IsTransition() && cp.LastPollTime.Equal(now) {
			u.Transitions = append(u.Transitions, cp)
		}
	}
	return u
}

func (p *Poller) emit(u Update) {
	// Non-blocking send, if channel is full, drop oldest
	select {
	case p.updateCh <- u:
	default:
		select {
		case <-p.updateCh:
		default:
		}
		select {
		case p.updateCh <- u:
		default:
		}
	}
}
