/*
Copyright © 2022 the redmodel authors.
This file is part of redmodel.

redmodel is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

redmodel is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with redmodel.  If not, see <http://www.gnu.org/licenses/>.
*/


// Package history keeps a record of completed simulations in a SQLite
// database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotFound is returned by Get when there is no record with the
// requested ID.
var ErrNotFound = errors.New("history: record not found")

// Record summarizes one simulation.
type Record struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`

	// Kind is the kind of simulation, e.g. "steady" or "sweep".
	Kind string `json:"kind"`

	Membrane         string  `json:"membrane"`
	LoadVoltage      float64 `json:"loadVoltage"`
	ConcentrationSW0 float64 `json:"concentrationSW0"`
	ConcentrationRW0 float64 `json:"concentrationRW0"`

	Power                   float64 `json:"power"`
	PowerDensityAvg         float64 `json:"powerDensityAvg"`
	EnergyEfficiency        float64 `json:"energyEfficiency"`
	ThermodynamicEfficiency float64 `json:"thermodynamicEfficiency"`

	// Output is the location of the output file, if any.
	Output string `json:"output,omitempty"`
}

// NewID returns a new globally unique, time-sortable record ID.
func NewID() string { return xid.New().String() }

// DB is a history database.
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	time TEXT NOT NULL,
	kind TEXT NOT NULL,
	membrane TEXT NOT NULL,
	load_voltage REAL NOT NULL,
	concentration_sw0 REAL NOT NULL,
	concentration_rw0 REAL NOT NULL,
	power REAL NOT NULL,
	power_density_avg REAL NOT NULL,
	energy_efficiency REAL NOT NULL,
	thermodynamic_efficiency REAL NOT NULL,
	output TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_time ON runs(time);
`

// Open opens the history database at path, creating it if necessary.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: creating schema in %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// Add stores r, assigning an ID and time if they are not set, and
// returns the stored record.
func (d *DB) Add(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	r.Time = r.Time.UTC()
	_, err := d.db.ExecContext(ctx, `INSERT INTO runs (id, time, kind, membrane, load_voltage,
		concentration_sw0, concentration_rw0, power, power_density_avg,
		energy_efficiency, thermodynamic_efficiency, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Time.Format(time.RFC3339Nano), r.Kind, r.Membrane, r.LoadVoltage,
		r.ConcentrationSW0, r.ConcentrationRW0, r.Power, r.PowerDensityAvg,
		r.EnergyEfficiency, r.ThermodynamicEfficiency, r.Output)
	if err != nil {
		return Record{}, fmt.Errorf("history: adding record %s: %w", r.ID, err)
	}
	return r, nil
}

const selectRuns = `SELECT id, time, kind, membrane, load_voltage, concentration_sw0,
	concentration_rw0, power, power_density_avg, energy_efficiency,
	thermodynamic_efficiency, output FROM runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(s scanner) (Record, error) {
	var r Record
	var t string
	err := s.Scan(&r.ID, &t, &r.Kind, &r.Membrane, &r.LoadVoltage, &r.ConcentrationSW0,
		&r.ConcentrationRW0, &r.Power, &r.PowerDensityAvg, &r.EnergyEfficiency,
		&r.ThermodynamicEfficiency, &r.Output)
	if err != nil {
		return Record{}, err
	}
	if r.Time, err = time.Parse(time.RFC3339Nano, t); err != nil {
		return Record{}, fmt.Errorf("history: record %s: %w", r.ID, err)
	}
	return r, nil
}

// List returns up to limit records, newest first. All records are
// returned if limit <= 0.
func (d *DB) List(ctx context.Context, limit int) ([]Record, error) {
	q := selectRuns + " ORDER BY time DESC, id DESC"
	var args []interface{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: listing records: %w", err)
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("history: listing records: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: listing records: %w", err)
	}
	return records, nil
}

// Get returns the record with the given ID.
func (d *DB) Get(ctx context.Context, id string) (Record, error) {
	r, err := scan(d.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("history: getting record %s: %w", id, err)
	}
	return r, nil
}
