// Package jobstore provides SQLite-backed persistence for tutorial job run
// history: one record per pipeline run with its final state and error code.
package jobstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is a persisted tutorial job run.
type Record struct {
	ID         string
	Root       string
	State      string
	ErrorCode  string
	Chapters   int
	Warnings   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store wraps a SQLite database for job history persistence.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures the
// jobs table exists. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		state TEXT NOT NULL,
		error_code TEXT NOT NULL DEFAULT '',
		chapters INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating jobs table: %w", err)
	}
	return nil
}

// Save inserts or replaces a job record.
func (s *Store) Save(rec Record) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO jobs (id, root, state, error_code, chapters, warnings, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Root, rec.State, rec.ErrorCode, rec.Chapters, rec.Warnings, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("saving job %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record for a job ID, or nil if not found.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(
		`SELECT id, root, state, error_code, chapters, warnings, started_at, finished_at
		 FROM jobs WHERE id = ?`, id)

	var rec Record
	err := row.Scan(&rec.ID, &rec.Root, &rec.State, &rec.ErrorCode, &rec.Chapters, &rec.Warnings, &rec.StartedAt, &rec.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job %s: %w", id, err)
	}
	return &rec, nil
}

// List returns all job records, most recent first.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, root, state, error_code, chapters, warnings, started_at, finished_at
		 FROM jobs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Root, &rec.State, &rec.ErrorCode, &rec.Chapters, &rec.Warnings, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
