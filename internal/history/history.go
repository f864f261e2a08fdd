// Package history keeps every availability the poller fetched in a sqlite
// database, so a refuge's places can be looked at over time.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JPM1118/refugewatch/internal/refuges"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrDisabled is returned by a nil Store.
var ErrDisabled = errors.New("history is disabled")

// Observation is one fetched availability.
type Observation struct {
	At          time.Time
	Refuge      refuges.Refuge
	Date        refuges.Date
	Status      string
	Places      int
	PlacesKnown bool
	Closed      bool
	Bookable    bool
}

// Store is a sqlite-backed observation log. A nil *Store is valid and
// behaves as disabled.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an observation.
func (s *Store) Record(ctx context.Context, o Observation) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if o.At.IsZero() {
		o.At = time.Now()
	}
	var places sql.NullInt64
	if o.PlacesKnown {
		places = sql.NullInt64{Int64: int64(o.Places), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations(at, refuge_id, refuge_name, night, status, places, closed, bookable)
		 VALUES(?,?,?,?,?,?,?,?)`,
		o.At.UTC().Format(timeLayout), o.Refuge.ID, o.Refuge.Name, o.Date.String(),
		o.Status, places, o.Closed, o.Bookable,
	)
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}
	return nil
}

// RecordAvailability records a poller result. It lets a Store serve as the
// poller's recorder.
func (s *Store) RecordAvailability(ctx context.Context, r refuges.Refuge, date refuges.Date, av refuges.Availability, status string) error {
	return s.Record(ctx, Observation{
		At:          av.Retrieved,
		Refuge:      r,
		Date:        date,
		Status:      status,
		Places:      av.Places,
		PlacesKnown: av.PlacesKnown,
		Closed:      av.Closed,
		Bookable:    av.Bookable,
	})
}

// Recent returns up to limit observations of a refuge for a night, newest
// first.
func (s *Store) Recent(ctx context.Context, refugeID int, date refuges.Date, limit int) ([]Observation, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, refuge_id, refuge_name, night, status, places, closed, bookable
		 FROM observations
		 WHERE refuge_id = ? AND night = ?
		 ORDER BY at DESC, id DESC
		 LIMIT ?`,
		refugeID, date.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var (
			o      Observation
			at     string
			night  string
			places sql.NullInt64
		)
		if err := rows.Scan(&at, &o.Refuge.ID, &o.Refuge.Name, &night, &o.Status, &places, &o.Closed, &o.Bookable); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if o.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("history time %q: %w", at, err)
		}
		if o.Date, err = refuges.ParseDate(night); err != nil {
			return nil, fmt.Errorf("history night %q: %w", night, err)
		}
		if places.Valid {
			o.Places = int(places.Int64)
			o.PlacesKnown = true
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
