package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JPM1118/refugewatch/internal/logx"
	"github.com/JPM1118/refugewatch/internal/refuges"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRefreshTimeout is how long a cached availability stays fresh.
	DefaultRefreshTimeout = 5 * time.Minute

	// DefaultFetchTimeout bounds one shared vendor fetch.
	DefaultFetchTimeout = 30 * time.Second
)

// Key identifies one refuge on one night.
type Key struct {
	RefugeID int
	Date     refuges.Date
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.RefugeID, k.Date)
}

// Cache is an in-memory time-to-live cache in front of a refuges.Source.
//
// A planning request returns a window of days; every day in the window is
// cached, so watching consecutive nights of one refuge costs one request
// per refresh.
type Cache struct {
	src          refuges.Source
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          logx.Logger

	mu      sync.Mutex
	entries map[Key]refuges.Availability

	group singleflight.Group
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the cache logger.
func WithLogger(l logx.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

// WithFetchTimeout bounds each vendor fetch. A fetch is shared by every
// caller waiting on the same key, so it does not use any caller's deadline.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewCache creates a cache whose entries stay fresh for ttl.
func NewCache(src refuges.Source, ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultRefreshTimeout
	}
	c := &Cache{
		src:          src,
		ttl:          ttl,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		log:          logx.Nop(),
		entries:      make(map[Key]refuges.Availability),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Lookup returns the cached entry for k and whether it is still fresh.
func (c *Cache) Lookup(k Key) (refuges.Availability, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	av, ok := c.entries[k]
	if !ok {
		return refuges.Availability{}, false
	}
	return av, c.freshLocked(av, c.now())
}

// Stale reports whether k has no entry or an expired one.
func (c *Cache) Stale(k Key) bool {
	_, fresh := c.Lookup(k)
	return !fresh
}

func (c *Cache) freshLocked(av refuges.Availability, now time.Time) bool {
	return av.Retrieved.After(now.Add(-c.ttl))
}

// Get returns the availability of r on date, fetching it when the cached
// entry is missing or stale. hit is true when no request was made.
//
// A date the vendor does not report yields a zero Availability that is not
// cached.
func (c *Cache) Get(ctx context.Context, r refuges.Refuge, date refuges.Date) (av refuges.Availability, hit bool, err error) {
	k := Key{RefugeID: r.ID, Date: date}
	if av, fresh := c.Lookup(k); fresh {
		return av, true, nil
	}

	ch := c.group.DoChan(k.String(), func() (interface{}, error) {
		// Another caller may have filled the entry while we waited.
		if av, fresh := c.Lookup(k); fresh {
			return av, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx, r, date)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return refuges.Availability{}, false, res.Err
		}
		return res.Val.(refuges.Availability), false, nil
	case <-ctx.Done():
		return refuges.Availability{}, false, ctx.Err()
	}
}

func (c *Cache) fetch(ctx context.Context, r refuges.Refuge, date refuges.Date) (refuges.Availability, error) {
	k := Key{RefugeID: r.ID, Date: date}

	if r.Special {
		av, err := c.src.SpecialAvailability(ctx, r)
		if err != nil {
			return refuges.Availability{}, err
		}
		av.Retrieved = c.now()
		c.mu.Lock()
		c.entries[k] = av
		c.mu.Unlock()
		return av, nil
	}

	days, err := c.src.Planning(ctx, r.ID, date)
	if err != nil {
		return refuges.Availability{}, err
	}

	now := c.now()
	c.mu.Lock()
	for d, av := range days {
		av.Retrieved = now
		c.entries[Key{RefugeID: r.ID, Date: d}] = av
	}
	av, ok := c.entries[k]
	if ok && !c.freshLocked(av, now) {
		ok = false
	}
	c.mu.Unlock()

	c.log.Debug("planning cached",
		logx.Int("refuge", r.ID),
		logx.String("date", date.String()),
		logx.Int("days", len(days)))

	if !ok {
		return refuges.Availability{}, nil
	}
	return av, nil
}

// Invalidate drops every entry, forcing the next Get to fetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[Key]refuges.Availability)
	c.mu.Unlock()
}

// Len returns the number of cached entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
