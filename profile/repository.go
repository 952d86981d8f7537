// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile persists geocoded college profiles in DuckDB, with H3
// cell indexes for spatial lookups.
package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/collegelinks/collegelinks/spatial"
)

// Profile is one college record together with its geocoding outcome.
type Profile struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            string         `json:"type,omitempty"` // university, college, institute
	Established     int            `json:"established,omitempty"`
	Address         string         `json:"address"`
	District        string         `json:"district,omitempty"`
	State           string         `json:"state,omitempty"`
	PIN             string         `json:"pin,omitempty"`
	Point           *spatial.Point `json:"point"`
	Source          string         `json:"source"` // which geocoding provider, or "none"
	Confidence      float64        `json:"confidence"`
	ValidationScore float64        `json:"validation_score"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	H3Res1          int64          `json:"-"`
	H3Res2          int64          `json:"-"`
	H3Res3          int64          `json:"-"`
	H3Res4          int64          `json:"-"`
	H3Res5          int64          `json:"-"`
	H3Res6          int64          `json:"-"`
	H3Res7          int64          `json:"-"`
	H3Res8          int64          `json:"-"`
}

func (p *Profile) computeH3() error {
	if p.Point == nil {
		p.H3Res1, p.H3Res2, p.H3Res3, p.H3Res4 = 0, 0, 0, 0
		p.H3Res5, p.H3Res6, p.H3Res7, p.H3Res8 = 0, 0, 0, 0

		return nil
	}

	latLng := h3.NewLatLng(p.Point.Lat, p.Point.Lng)
	cells := [8]*int64{&p.H3Res1, &p.H3Res2, &p.H3Res3, &p.H3Res4, &p.H3Res5, &p.H3Res6, &p.H3Res7, &p.H3Res8}

	for res := 1; res <= 8; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("converting to h3 cell at res %d: %w", res, err)
		}

		*cells[res-1] = int64(cell)
	}

	return nil
}

// Repository handles persistence of college profiles.
type Repository interface {
	// CreateSchema creates the colleges table.
	CreateSchema() error

	// Save inserts or updates a profile by ID.
	Save(p *Profile) error

	// BulkInsert inserts a slice of profiles in one transaction.
	BulkInsert(profiles []*Profile) error

	// Get returns the profile with the given ID, or sql.ErrNoRows.
	Get(id string) (*Profile, error)

	// List returns profiles, optionally filtered by state, newest first.
	List(state *string, limit, offset int) ([]*Profile, error)

	// Nearby returns geocoded profiles within radiusMeters of the point,
	// closest first.
	Nearby(lat, lng, radiusMeters float64, limit int) ([]*Profile, error)

	// Count returns the total number of profiles.
	Count() (int, error)

	// CountGeocoded returns how many profiles carry coordinates.
	CountGeocoded() (int, error)
}

type sqlProfileRepository struct {
	db *sql.DB
}

// NewRepository creates a DuckDB-backed profile repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlProfileRepository{db: db}
}

func (r *sqlProfileRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS colleges (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			type VARCHAR,
			established INTEGER,
			address VARCHAR NOT NULL,
			district VARCHAR,
			state VARCHAR,
			pin VARCHAR,
			point POINT_2D,
			source VARCHAR NOT NULL,
			confidence DOUBLE NOT NULL,
			validation_score DOUBLE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT
		);
	`)

	return err
}

func (r *sqlProfileRepository) Save(p *Profile) error {
	if p.ID == "" {
		return errors.New("profile id can't be empty")
	}

	existing, err := r.Get(p.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if err := p.computeH3(); err != nil {
		return err
	}

	p.UpdatedAt = time.Now()

	if existing != nil {
		_, err = r.db.Exec(`
			UPDATE colleges
			SET name = ?, type = ?, established = ?, address = ?,
			    district = ?, state = ?, pin = ?, point = ST_Point(?, ?),
			    source = ?, confidence = ?, validation_score = ?, updated_at = ?,
				h3_res1 = ?, h3_res2 = ?, h3_res3 = ?, h3_res4 = ?, h3_res5 = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?
			WHERE id = ?
		`,
			p.Name,
			p.Type,
			p.Established,
			p.Address,
			p.District,
			p.State,
			p.PIN,
			pointLng(p.Point),
			pointLat(p.Point),
			p.Source,
			p.Confidence,
			p.ValidationScore,
			p.UpdatedAt,
			p.H3Res1,
			p.H3Res2,
			p.H3Res3,
			p.H3Res4,
			p.H3Res5,
			p.H3Res6,
			p.H3Res7,
			p.H3Res8,
			p.ID,
		)

		return err
	}

	p.CreatedAt = p.UpdatedAt

	return r.BulkInsert([]*Profile{p})
}

func (r *sqlProfileRepository) BulkInsert(profiles []*Profile) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO colleges(
			id,
			name,
			type,
			established,
			address,
			district,
			state,
			pin,
			point,
			source,
			confidence,
			validation_score,
			created_at,
			updated_at,
			h3_res1,
			h3_res2,
			h3_res3,
			h3_res4,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	for _, p := range profiles {
		if err = p.computeH3(); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}

		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}

		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}

		if _, err = stmt.Exec(
			p.ID,
			p.Name,
			p.Type,
			p.Established,
			p.Address,
			p.District,
			p.State,
			p.PIN,
			pointLng(p.Point),
			pointLat(p.Point),
			p.Source,
			p.Confidence,
			p.ValidationScore,
			p.CreatedAt,
			p.UpdatedAt,
			p.H3Res1,
			p.H3Res2,
			p.H3Res3,
			p.H3Res4,
			p.H3Res5,
			p.H3Res6,
			p.H3Res7,
			p.H3Res8,
		); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return err
		}
	}

	return tx.Commit()
}

// Ungeocoded profiles store point (0,0); pointLat/pointLng keep the insert
// statements uniform.
func pointLat(p *spatial.Point) float64 {
	if p == nil {
		return 0
	}

	return p.Lat
}

func pointLng(p *spatial.Point) float64 {
	if p == nil {
		return 0
	}

	return p.Lng
}

var baseSelect = `
	SELECT id, name, type, established, address, district, state, pin,
	       point, source, confidence, validation_score,
	       created_at, updated_at,
	       h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8
	FROM colleges
`

func (r *sqlProfileRepository) Get(id string) (*Profile, error) {
	rows, err := r.list(baseSelect+" WHERE id = ?", []any{id})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}

	return rows[0], nil
}

func (r *sqlProfileRepository) List(state *string, limit, offset int) ([]*Profile, error) {
	query := baseSelect

	args := []any{}

	if state != nil {
		query += " WHERE state = ?"

		args = append(args, *state)
	}

	query += " ORDER BY updated_at DESC"

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, limit, offset)
	}

	return r.list(query, args)
}

func (r *sqlProfileRepository) list(query string, args []any) ([]*Profile, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile

	for rows.Next() {
		p := &Profile{Point: &spatial.Point{}}

		var typ, district, state, pin sql.NullString

		var established sql.NullInt64

		var h3 [8]sql.NullInt64

		err := rows.Scan(
			&p.ID, &p.Name, &typ, &established, &p.Address,
			&district, &state, &pin,
			&p.Point, &p.Source, &p.Confidence, &p.ValidationScore,
			&p.CreatedAt, &p.UpdatedAt,
			&h3[0], &h3[1], &h3[2], &h3[3], &h3[4], &h3[5], &h3[6], &h3[7],
		)
		if err != nil {
			return nil, err
		}

		p.Type = typ.String
		p.District = district.String
		p.State = state.String
		p.PIN = pin.String
		p.Established = int(established.Int64)

		cells := [8]*int64{&p.H3Res1, &p.H3Res2, &p.H3Res3, &p.H3Res4, &p.H3Res5, &p.H3Res6, &p.H3Res7, &p.H3Res8}
		for i, v := range h3 {
			if v.Valid {
				*cells[i] = v.Int64
			}
		}

		// An ungeocoded profile comes back as the (0,0) placeholder.
		if p.Point.Lat == 0 && p.Point.Lng == 0 {
			p.Point = nil
		}

		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

func (r *sqlProfileRepository) Nearby(lat, lng, radiusMeters float64, limit int) ([]*Profile, error) {
	profiles, err := r.list(baseSelect+" WHERE source != 'none'", nil)
	if err != nil {
		return nil, err
	}

	from := &spatial.Point{Lat: lat, Lng: lng}

	var nearby []*Profile

	distances := make(map[string]float64)

	for _, p := range profiles {
		if p.Point == nil {
			continue
		}

		d := from.HaversineDistance(p.Point)
		if d > radiusMeters {
			continue
		}

		distances[p.ID] = d

		nearby = append(nearby, p)
	}

	sort.Slice(nearby, func(i, j int) bool {
		return distances[nearby[i].ID] < distances[nearby[j].ID]
	})

	if limit > 0 && len(nearby) > limit {
		nearby = nearby[:limit]
	}

	return nearby, nil
}

func (r *sqlProfileRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM colleges").Scan(&count)

	return count, err
}

func (r *sqlProfileRepository) CountGeocoded() (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM colleges WHERE source != 'none'",
	).Scan(&count)

	return count, err
}
