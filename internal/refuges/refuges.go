package refuges

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a refuge name matches nothing in the catalogue.
	ErrNotFound = errors.New("refuge not found")

	// ErrUnexpectedResponse is returned when a vendor payload has an unknown shape.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Refuge is a bookable hut on the tour.
type Refuge struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	// Special refuges are not listed on the main booking site and are
	// probed through their own pages.
	Special bool `json:"special"`
}

// Equal reports whether two refuges share id and name.
func (r Refuge) Equal(o Refuge) bool {
	return r.ID == o.ID && r.Name == o.Name
}

// Region groups refuges the booking site shows together.
type Region struct {
	Name      string
	RefugeIDs []int
}

// Availability is the booking state of one refuge on one night.
type Availability struct {
	Places      int
	PlacesKnown bool
	Closed      bool
	Bookable    bool
	Retrieved   time.Time
}

// Date is a calendar day with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006.01.02"}

// NewDate returns the calendar day of t in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts 2006-01-02, 02/01/2006 and 2006.01.02.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD, DD/MM/YYYY or YYYY.MM.DD)", s)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days after d.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

func (d Date) IsZero() bool { return d == Date{} }

// String renders the ISO form used on the wire and on disk.
func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// Long renders the day for humans, e.g. "Wednesday, Sep 11, 2024".
func (d Date) Long() string {
	return d.Time().Format("Monday, Jan 02, 2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
