package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"telemetry-pipeline/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown id
var ErrRunNotFound = errors.New("run not found")

// Store is the sqlite run ledger
type Store struct {
	db *sql.DB
}

// RunRecord is one row of the runs table
type RunRecord struct {
	ID        string           `json:"id"`
	Spec      model.RunSpec    `json:"spec"`
	Status    string           `json:"status"`
	Result    *model.RunResult `json:"result,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Open connects to the ledger at dbPath and creates the tables if needed
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; runs update the ledger from several goroutines
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		spec TEXT,
		status TEXT,
		result TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	artifactTable := `
	CREATE TABLE IF NOT EXISTS run_artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		entity TEXT,
		partition_date TEXT,
		location TEXT,
		rows INTEGER,
		bytes INTEGER,
		written_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, artifactTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create ledger tables: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a new pending run
func (s *Store) SaveRun(spec model.RunSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		spec.ID, string(specJSON), model.StatusPending, now, now)
	return err
}

// UpdateRunStatus updates run status
func (s *Store) UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunResult stores the final result and one row per artifact
func (s *Store) SaveRunResult(runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.Exec(`UPDATE runs SET result = ?, updated_at = ? WHERE id = ?`, string(resultJSON), now, runID); err != nil {
		return err
	}
	for _, a := range result.Artifacts {
		_, err := tx.Exec(`INSERT INTO run_artifacts (run_id, entity, partition_date, location, rows, bytes, written_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, a.Key.Entity, fmt.Sprintf("%s-%s-%s", a.Key.Year, a.Key.Month, a.Key.Day), a.Location, a.Rows, a.Bytes, a.WrittenAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveRunError records an error for a run
func (s *Store) SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := s.db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// ListRuns returns all runs with basic info, newest first
func (s *Store) ListRuns() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT id, spec, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var rec RunRecord
		var specJSON string
		if err := rows.Scan(&rec.ID, &specJSON, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(specJSON), &rec.Spec); err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRun fetches a run with its result and errors
func (s *Store) GetRun(runID string) (*RunRecord, error) {
	rec := &RunRecord{ID: runID}
	var specJSON string
	var resultJSON sql.NullString

	err := s.db.QueryRow(`SELECT spec, status, result, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &rec.Status, &resultJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(specJSON), &rec.Spec); err != nil {
		return nil, err
	}
	if resultJSON.Valid && resultJSON.String != "" {
		rec.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), rec.Result); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.Query(`SELECT error_message FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		rec.Errors = append(rec.Errors, msg)
	}
	return rec, rows.Err()
}
