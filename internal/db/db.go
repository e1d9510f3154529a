// Package db persists a history of lens queries in sqlite.
//
// Every focal-length and ray-trace request handled by the API is recorded
// with its chip geometry, voltage configuration and result so chip designs
// can be compared after the fact. The store is append-only.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the sqlite connection holding query history.
type Store struct {
	*sql.DB
}

// NewStore opens (or creates) the sqlite database at path and ensures the
// schema exists.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS queries (
			query_id          TEXT PRIMARY KEY,
			kind              TEXT,
			spacings          TEXT,
			thicknesses       TEXT,
			diameter          DOUBLE,
			voltages          TEXT,
			result            TEXT,
			warnings          BIGINT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db}, nil
}

// QueryRecord is one row of query history. Result holds the scalar focal
// length for focal-length queries ("Infinity"/"-Infinity"/"NaN" sentinels for
// non-finite values) and a short summary for trace queries. Warnings counts
// the diagnostics the trace produced.
type QueryRecord struct {
	QueryID     string
	Kind        string
	Spacings    []float64
	Thicknesses []float64
	Diameter    float64
	Voltages    []float64
	Result      string
	Warnings    int
	Timestamp   time.Time
}

// Query kinds recorded by the API layer.
const (
	KindFocalLength = "focal_length"
	KindTraceRay    = "trace_ray"
	KindPlotRay     = "plot_ray"
	KindChartRay    = "chart_ray"
)

// RecordQuery inserts a query record. A missing QueryID is filled with a
// fresh uuid, which is also written back to rec for the caller.
func (s *Store) RecordQuery(rec *QueryRecord) error {
	if rec.QueryID == "" {
		rec.QueryID = uuid.NewString()
	}

	spacings, err := json.Marshal(rec.Spacings)
	if err != nil {
		return fmt.Errorf("failed to encode spacings: %w", err)
	}
	thicknesses, err := json.Marshal(rec.Thicknesses)
	if err != nil {
		return fmt.Errorf("failed to encode thicknesses: %w", err)
	}
	voltages, err := json.Marshal(rec.Voltages)
	if err != nil {
		return fmt.Errorf("failed to encode voltages: %w", err)
	}

	_, err = s.Exec(`
		INSERT INTO queries (query_id, kind, spacings, thicknesses, diameter, voltages, result, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.QueryID, rec.Kind, string(spacings), string(thicknesses),
		rec.Diameter, string(voltages), rec.Result, rec.Warnings)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// RecentQueries returns up to limit records, newest first.
func (s *Store) RecentQueries(limit int) ([]QueryRecord, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.Query(`
		SELECT query_id, kind, spacings, thicknesses, diameter, voltages, result, warnings, timestamp
		FROM queries ORDER BY timestamp DESC, query_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var spacings, thicknesses, voltages string
		if err := rows.Scan(&rec.QueryID, &rec.Kind, &spacings, &thicknesses,
			&rec.Diameter, &voltages, &rec.Result, &rec.Warnings, &rec.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(spacings), &rec.Spacings); err != nil {
			return nil, fmt.Errorf("corrupt spacings for %s: %w", rec.QueryID, err)
		}
		if err := json.Unmarshal([]byte(thicknesses), &rec.Thicknesses); err != nil {
			return nil, fmt.Errorf("corrupt thicknesses for %s: %w", rec.QueryID, err)
		}
		if err := json.Unmarshal([]byte(voltages), &rec.Voltages); err != nil {
			return nil, fmt.Errorf("corrupt voltages for %s: %w", rec.QueryID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
