// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists batch runs in a SQLite ledger. The ledger is
// append-only observability: the converter writes it but never consults it
// to decide what to convert.
// Implements: prd004-history (R1-R5);
//
//	docs/ARCHITECTURE § History.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/webpress/pkg/types"
)

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			quality INTEGER NOT NULL,
			found INTEGER NOT NULL,
			unsupported_heic INTEGER NOT NULL,
			converted INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			input_bytes INTEGER NOT NULL,
			output_bytes INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			input_path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			status TEXT NOT NULL,
			stage TEXT,
			error TEXT,
			original_bytes INTEGER NOT NULL,
			converted_bytes INTEGER NOT NULL,
			checksum TEXT,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun appends a completed run and its per-file results to the ledger
// in a single transaction.
func (s *Store) RecordRun(ctx context.Context, rec types.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, input_dir, output_dir, quality,
			found, unsupported_heic, converted, failed, input_bytes, output_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		rec.InputDir, rec.OutputDir, rec.Quality,
		rec.Stats.Found, rec.Stats.UnsupportedHEIC,
		rec.Stats.Converted, rec.Stats.Failed,
		rec.Stats.TotalInputBytes, rec.Stats.TotalOutputBytes,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (run_id, input_path, output_path, status, stage, error,
			original_bytes, converted_bytes, checksum, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range rec.Results {
		// uint64 checksums do not fit SQLite's signed integers; store hex.
		checksum := ""
		if res.Checksum != 0 {
			checksum = fmt.Sprintf("%016x", res.Checksum)
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID, res.Job.InputPath, res.Job.OutputPath,
			string(res.Status), string(res.Stage), res.Err,
			res.OriginalBytes, res.ConvertedBytes, checksum,
			res.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("inserting file %s: %w", res.Job.InputPath, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first, without per-file results.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, input_dir, output_dir, quality,
			found, unsupported_heic, converted, failed, input_bytes, output_bytes
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var recs []types.RunRecord
	for rows.Next() {
		var rec types.RunRecord
		var started, finished string
		if err := rows.Scan(&rec.ID, &started, &finished,
			&rec.InputDir, &rec.OutputDir, &rec.Quality,
			&rec.Stats.Found, &rec.Stats.UnsupportedHEIC,
			&rec.Stats.Converted, &rec.Stats.Failed,
			&rec.Stats.TotalInputBytes, &rec.Stats.TotalOutputBytes,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing run start time: %w", err)
		}
		if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parsing run finish time: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// FilesFor returns the per-file results of a run in insertion order.
func (s *Store) FilesFor(ctx context.Context, runID string) ([]types.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input_path, output_path, status, stage, error,
			original_bytes, converted_bytes, checksum, duration_ms
		 FROM files WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var results []types.Result
	for rows.Next() {
		var res types.Result
		var checksum string
		var durationMS int64
		if err := rows.Scan(&res.Job.InputPath, &res.Job.OutputPath,
			&res.Status, &res.Stage, &res.Err,
			&res.OriginalBytes, &res.ConvertedBytes, &checksum, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		if checksum != "" {
			if res.Checksum, err = strconv.ParseUint(checksum, 16, 64); err != nil {
				return nil, fmt.Errorf("parsing checksum: %w", err)
			}
		}
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, res)
	}
	return results, rows.Err()
}
