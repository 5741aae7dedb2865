// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists crawl results in a SQLite database so several runs
// can be compared and queried with SQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

// Run identifies one crawl run and its inputs.
type Run struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Venues   []string
	Keywords []string
	Accepted int
}

// Store wraps the harvest database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
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
			started TEXT NOT NULL,
			finished TEXT NOT NULL,
			venues TEXT NOT NULL,
			keywords TEXT NOT NULL,
			accepted INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			paper_id TEXT NOT NULL,
			title TEXT,
			abstract TEXT,
			year INTEGER,
			venue TEXT,
			doi TEXT,
			arxiv TEXT,
			source TEXT,
			keyword TEXT,
			score REAL,
			PRIMARY KEY (run_id, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_paper_id ON papers(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_venue ON papers(venue)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores run and its records in one transaction. Saving a run ID
// that already exists replaces its rows.
func (s *Store) SaveRun(ctx context.Context, run Run, records iter.Seq[types.PaperRecord]) error {
	venuesJSON, _ := json.Marshal(run.Venues)
	keywordsJSON, _ := json.Marshal(run.Keywords)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("deleting old papers: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started, finished, venues, keywords, accepted)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			started=excluded.started, finished=excluded.finished,
			venues=excluded.venues, keywords=excluded.keywords,
			accepted=excluded.accepted`,
		run.ID, run.Started.UTC().Format(time.RFC3339Nano), run.Finished.UTC().Format(time.RFC3339Nano),
		string(venuesJSON), string(keywordsJSON), run.Accepted,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (run_id, position, paper_id, title, abstract, year, venue, doi, arxiv, source, keyword, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	pos := 0
	for rec := range records {
		var score sql.NullFloat64
		if rec.Score != nil {
			score = sql.NullFloat64{Float64: *rec.Score, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			run.ID, pos, rec.ID, rec.Title, rec.Abstract, rec.Year, rec.Venue,
			rec.DOI, rec.ArXiv, rec.Source, rec.Keyword, score,
		)
		if err != nil {
			return fmt.Errorf("inserting paper %s: %w", rec.ID, err)
		}
		pos++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	return nil
}

// Papers returns the records of a run in discovery order.
func (s *Store) Papers(ctx context.Context, runID string) ([]types.PaperRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, title, abstract, year, venue, doi, arxiv, source, keyword, score
		 FROM papers WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var out []types.PaperRecord
	for rows.Next() {
		var (
			rec   types.PaperRecord
			score sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Abstract, &rec.Year, &rec.Venue,
			&rec.DOI, &rec.ArXiv, &rec.Source, &rec.Keyword, &score); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if score.Valid {
			v := score.Float64
			rec.Score = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Runs lists stored runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started, finished, venues, keywords, accepted FROM runs ORDER BY started DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			venues, keywords  string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &venues, &keywords, &r.Accepted); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Finished, _ = time.Parse(time.RFC3339Nano, finished)
		_ = json.Unmarshal([]byte(venues), &r.Venues)
		_ = json.Unmarshal([]byte(keywords), &r.Keywords)
		out = append(out, r)
	}
	return out, rows.Err()
}
