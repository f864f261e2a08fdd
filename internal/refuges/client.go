package refuges

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/JPM1118/refugewatch/internal/logx"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0 Safari/537.36"

// Endpoints holds the vendor URLs. Tests point them at httptest servers.
type Endpoints struct {
	RefugeList string
	Planning   string
	Regions    string
	LacBlanc   string
}

// DefaultEndpoints returns the production booking endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		RefugeList: "https://www.montourdumontblanc.com/uk/index.aspx",
		Planning:   "https://etape-rest.for-system.com/index.aspx/index.aspx",
		Regions:    "https://jsonp.open-system.fr/jsonp.aspx?px=http://www.montourdumontblanc.com/uk/json-listezonesgeo.xml",
		LacBlanc:   "https://refuge-lac-blanc.fr/en/booking/",
	}
}

// ClientConfig configures a Client. Zero values get defaults.
type ClientConfig struct {
	Endpoints         Endpoints
	Timeout           time.Duration
	RequestsPerSecond float64
	CatalogueTTL      time.Duration
	Logger            logx.Logger
}

// Client talks to the booking site over HTTP.
type Client struct {
	http      *http.Client
	endpoints Endpoints
	limiter   *rate.Limiter
	log       logx.Logger
	ttl       time.Duration
	now       func() time.Time

	mu        sync.Mutex
	refuges   []Refuge
	refugesAt time.Time
	regions   []Region
	regionsAt time.Time
}

var _ Source = (*Client)(nil)

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.CatalogueTTL <= 0 {
		cfg.CatalogueTTL = 24 * time.Hour
	}
	if cfg.Logger.IsZero() {
		cfg.Logger = logx.Nop()
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		endpoints: cfg.Endpoints,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:       cfg.Logger,
		ttl:       cfg.CatalogueTTL,
		now:       time.Now,
	}
}

// Refuges returns every refuge on the booking site plus the special
// refuges, sorted by name. The list is cached for the catalogue TTL.
func (c *Client) Refuges(ctx context.Context) ([]Refuge, error) {
	c.mu.Lock()
	if c.refuges != nil && c.now().Sub(c.refugesAt) < c.ttl {
		list := append([]Refuge(nil), c.refuges...)
		c.mu.Unlock()
		return list, nil
	}
	c.mu.Unlock()

	body, err := c.get(ctx, c.endpoints.RefugeList)
	if err != nil {
		return nil, fmt.Errorf("refuge list: %w", err)
	}
	list, err := parseRefugeList(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	list = append(list, SpecialRefuges()...)
	sortByName(list)
	c.log.Info("refuge list loaded", logx.Int("count", len(list)))

	c.mu.Lock()
	c.refuges = list
	c.refugesAt = c.now()
	c.mu.Unlock()
	return append([]Refuge(nil), list...), nil
}

// Regions returns the geographic regions and their refuge ids. Cached like
// Refuges.
func (c *Client) Regions(ctx context.Context) ([]Region, error) {
	c.mu.Lock()
	if c.regions != nil && c.now().Sub(c.regionsAt) < c.ttl {
		list := append([]Region(nil), c.regions...)
		c.mu.Unlock()
		return list, nil
	}
	c.mu.Unlock()

	body, err := c.get(ctx, c.endpoints.Regions)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	list, err := parseRegions(body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.regions = list
	c.regionsAt = c.now()
	c.mu.Unlock()
	return append([]Region(nil), list...), nil
}

// Planning fetches the availability window the site returns for refugeID
// starting at date. The window usually spans several days.
func (c *Client) Planning(ctx context.Context, refugeID int, date Date) (map[Date]Availability, error) {
	u, err := url.Parse(c.endpoints.Planning)
	if err != nil {
		return nil, fmt.Errorf("planning url: %w", err)
	}
	q := u.Query()
	q.Set("ref", "json-planning-refuge")
	q.Set("q", fmt.Sprintf("%d,%s", refugeID, date))
	u.RawQuery = q.Encode()

	c.log.Debug("querying planning", logx.Int("refuge", refugeID), logx.String("date", date.String()))
	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("planning %d on %s: %w", refugeID, date, err)
	}
	return parsePlanning(body, date, c.now())
}

// SpecialAvailability probes a refuge that is not on the booking site.
// A failed probe is logged and reports the refuge as not bookable.
func (c *Client) SpecialAvailability(ctx context.Context, r Refuge) (Availability, error) {
	p, ok := specialProbes[r.ID]
	if !ok {
		return Availability{}, fmt.Errorf("refuge %d: %w: no special probe", r.ID, ErrNotFound)
	}
	target := p.url(c.endpoints)
	body, err := c.get(ctx, target)
	if err != nil {
		c.log.Warn("special refuge probe failed", logx.String("refuge", r.Name), logx.Err(err))
		return Availability{Bookable: false, Retrieved: c.now()}, nil
	}
	return Availability{
		Bookable:  !bytes.Contains(body, []byte(p.closedMarker)),
		Retrieved: c.now(),
	}, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/json,application/javascript;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, req.URL.Host)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
