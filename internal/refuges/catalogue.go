package refuges

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Catalogue answers name and id lookups over a loaded refuge list.
type Catalogue struct {
	list []Refuge
}

// NewCatalogue wraps an already-loaded refuge list.
func NewCatalogue(list []Refuge) *Catalogue {
	return &Catalogue{list: append([]Refuge(nil), list...)}
}

// LoadCatalogue fetches the refuge list from src.
func LoadCatalogue(ctx context.Context, src Source) (*Catalogue, error) {
	list, err := src.Refuges(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalogue(list), nil
}

// All returns the refuges in catalogue order.
func (c *Catalogue) All() []Refuge {
	return append([]Refuge(nil), c.list...)
}

// Len returns the number of refuges.
func (c *Catalogue) Len() int { return len(c.list) }

// LongestName returns the length of the longest refuge name, for alignment.
func (c *Catalogue) LongestName() int {
	n := 0
	for _, r := range c.list {
		if len(r.Name) > n {
			n = len(r.Name)
		}
	}
	return n
}

// ByName finds a refuge by exact name, then by case-insensitive substring.
func (c *Catalogue) ByName(name string) (Refuge, error) {
	for _, r := range c.list {
		if r.Name == name {
			return r, nil
		}
	}
	needle := strings.ToLower(name)
	for _, r := range c.list {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			return r, nil
		}
	}
	return Refuge{}, fmt.Errorf("could not find refuge with name %q: %w", name, ErrNotFound)
}

// ByID finds a refuge by id. Unknown ids yield a placeholder refuge so that
// plans referencing delisted refuges keep working.
func (c *Catalogue) ByID(id int) Refuge {
	for _, r := range c.list {
		if r.ID == id {
			return r
		}
	}
	return Refuge{ID: id, Name: fmt.Sprintf("Unknown Refuge (%d)", id)}
}

// Resolve interprets a command-line argument as an id or a name.
func (c *Catalogue) Resolve(arg string) (Refuge, error) {
	if id, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		return c.ByID(id), nil
	}
	return c.ByName(arg)
}

// ResolveAll resolves every argument, stopping at the first failure.
func (c *Catalogue) ResolveAll(args []string) ([]Refuge, error) {
	out := make([]Refuge, 0, len(args))
	for _, a := range args {
		r, err := c.Resolve(a)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Match re-resolves a stored refuge by id or name. Refuges missing from the
// catalogue are returned unchanged.
func (c *Catalogue) Match(stored Refuge) Refuge {
	for _, r := range c.list {
		if r.ID == stored.ID || r.Name == stored.Name {
			return r
		}
	}
	return stored
}

// InRegions returns the refuges of every region whose name contains name.
func (c *Catalogue) InRegions(regions []Region, name string) []Refuge {
	var out []Refuge
	for _, reg := range regions {
		if !strings.Contains(reg.Name, name) {
			continue
		}
		for _, id := range reg.RefugeIDs {
			out = append(out, c.ByID(id))
		}
	}
	return out
}
