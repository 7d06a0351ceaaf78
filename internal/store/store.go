// Package store keeps a history of motility runs in a SQLite database, so
// results from different imaging days can be compared after the CSVs are
// gone.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/spine-tools/internal/motility"
)

// ErrRunNotFound is returned by Run for an unknown run ID.
var ErrRunNotFound = errors.New("motility run not found")

//go:embed schema.sql
var schemaSQL string

// Run is one recorded invocation of the motility calculator.
type Run struct {
	RunID     string          `json:"run_id"`
	Method    motility.Method `json:"method"`
	Delta     int             `json:"delta"`
	Files     []string        `json:"files"`
	Skipped   int             `json:"skipped"`
	CreatedAt int64           `json:"created_at"`
}

// DB is a motility history database.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db}, nil
}

// RecordRun stores report under a new run ID and returns the run.
func (db *DB) RecordRun(report *motility.Report, opts motility.Options) (*Run, error) {
	files, err := json.Marshal(report.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to encode files: %w", err)
	}
	run := &Run{
		RunID:     uuid.New().String(),
		Method:    opts.Method,
		Delta:     opts.Delta,
		Files:     report.Files,
		Skipped:   len(report.Skipped),
		CreatedAt: time.Now().UnixNano(),
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO motility_runs (run_id, method, delta, files, skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, string(run.Method), run.Delta, string(files), run.Skipped, run.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO motility_results (run_id, source_file, spine_name, points, motility)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range report.Results {
		if _, err := stmt.Exec(run.RunID, r.Source, r.Spine, r.Points, r.Motility); err != nil {
			return nil, fmt.Errorf("failed to insert result %s/%s: %w", r.Source, r.Spine, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// Runs lists every recorded run, newest first.
func (db *DB) Runs() ([]*Run, error) {
	rows, err := db.Query(`
		SELECT run_id, method, delta, files, skipped, created_at
		FROM motility_runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns a single run by ID.
func (db *DB) Run(runID string) (*Run, error) {
	row := db.QueryRow(`
		SELECT run_id, method, delta, files, skipped, created_at
		FROM motility_runs
		WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// Results returns the per-spine results of a run, ordered by source file and
// spine name.
func (db *DB) Results(runID string) ([]motility.Result, error) {
	rows, err := db.Query(`
		SELECT source_file, spine_name, points, motility
		FROM motility_results
		WHERE run_id = ?
		ORDER BY source_file, spine_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []motility.Result
	for rows.Next() {
		var r motility.Result
		if err := rows.Scan(&r.Source, &r.Spine, &r.Points, &r.Motility); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r      Run
		method string
		files  string
	)
	if err := s.Scan(&r.RunID, &method, &r.Delta, &files, &r.Skipped, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.Method = motility.Method(method)
	if err := json.Unmarshal([]byte(files), &r.Files); err != nil {
		return nil, fmt.Errorf("decode files of run %s: %w", r.RunID, err)
	}
	return &r, nil
}
