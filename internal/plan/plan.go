// Package plan stores which refuges the user wants to sleep in on which
// nights, as a small JSON file.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JPM1118/refugewatch/internal/poller"
	"github.com/JPM1118/refugewatch/internal/refuges"
)

var (
	// ErrNotJSON is returned for an explicit plan path without a .json suffix.
	ErrNotJSON = errors.New("plan file must be a JSON file ending in .json")
	// ErrNotFound is returned when an explicit plan path does not exist.
	ErrNotFound = errors.New("plan file not found")
	// ErrEmpty is returned when checking a plan without days.
	ErrEmpty = errors.New("no days have been added to the plan")
)

// Day is one night of the plan.
type Day struct {
	Date    refuges.Date     `json:"date"`
	Refuges []refuges.Refuge `json:"refuges"`
}

type document struct {
	Days []Day `json:"days"`
}

// Plan maps nights to the refuges worth checking for them.
type Plan struct {
	path string
	days map[refuges.Date][]refuges.Refuge
}

// DefaultPath returns ~/.montblanc/default_plan.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".montblanc", "default_plan.json")
	}
	return filepath.Join(home, ".montblanc", "default_plan.json")
}

// Open loads the plan at path. An empty path opens the default plan, which
// may not exist yet. An explicit path must end in .json and exist.
//
// Stored refuges are matched against cat by id or name so renamed refuges
// pick up their current name. cat may be nil.
func Open(path string, cat *refuges.Catalogue) (*Plan, error) {
	if path == "" {
		path = DefaultPath()
	} else {
		if !strings.HasSuffix(path, ".json") {
			return nil, fmt.Errorf("%w: %s", ErrNotJSON, path)
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return nil, fmt.Errorf("stat plan: %w", err)
		}
	}

	p := &Plan{path: path, days: make(map[refuges.Date][]refuges.Refuge)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read plan: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return p, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	for _, d := range doc.Days {
		list := d.Refuges
		if cat != nil {
			list = make([]refuges.Refuge, 0, len(d.Refuges))
			for _, r := range d.Refuges {
				list = append(list, cat.Match(r))
			}
		}
		if len(list) > 0 {
			p.days[d.Date] = normalize(list)
		}
	}
	return p, nil
}

// Path returns the file the plan is stored in.
func (p *Plan) Path() string { return p.path }

// Len returns the number of planned nights.
func (p *Plan) Len() int { return len(p.days) }

// Days returns the planned nights in date order.
func (p *Plan) Days() []Day {
	out := make([]Day, 0, len(p.days))
	for date, list := range p.days {
		out = append(out, Day{Date: date, Refuges: append([]refuges.Refuge(nil), list...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Day returns the refuges planned for date.
func (p *Plan) Day(date refuges.Date) []refuges.Refuge {
	return append([]refuges.Refuge(nil), p.days[date]...)
}

// SetDay replaces the refuges of a night and saves the plan. No refuges
// clears the night.
func (p *Plan) SetDay(date refuges.Date, list []refuges.Refuge) error {
	if len(list) == 0 {
		delete(p.days, date)
	} else {
		p.days[date] = normalize(list)
	}
	return p.Save()
}

// Save writes the plan, creating its directory if needed.
func (p *Plan) Save() error {
	data, err := json.MarshalIndent(document{Days: p.Days()}, "", "    ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create plan dir: %w", err)
	}
	if err := os.WriteFile(p.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// Targets flattens the plan into poll targets, night by night.
func (p *Plan) Targets() ([]poller.Target, error) {
	if len(p.days) == 0 {
		return nil, ErrEmpty
	}
	var out []poller.Target
	for _, d := range p.Days() {
		for _, r := range d.Refuges {
			out = append(out, poller.Target{Refuge: r, Date: d.Date})
		}
	}
	return out, nil
}

// normalize drops duplicate refuges and sorts by name.
func normalize(list []refuges.Refuge) []refuges.Refuge {
	seen := make(map[int]bool, len(list))
	out := make([]refuges.Refuge, 0, len(list))
	for _, r := range list {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
