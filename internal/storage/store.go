package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/neubell/llm-meter/internal/core"
)

// Store is the durable record store for usage and cost rows. The two tables
// are append-only between refreshes; ReplaceSnapshot is the only mutation and
// always runs inside one transaction.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("storage: opening DB: %w", err)
	}
	if err := configureConnection(db); err != nil {
		db.Close()
		return nil, err
	}

	store := New(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func configureConnection(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("storage: set journal_mode WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("storage: set busy_timeout: %w", err)
	}

	// The refresh/export path is the only writer; a single connection keeps
	// transactions from competing for the file lock.
	db.SetMaxOpenConns(1)
	return nil
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			cached_tokens INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_usage_records_provider_ts ON usage_records(provider, timestamp);`,
		`CREATE TABLE IF NOT EXISTS cost_records (
			id INTEGER PRIMARY KEY,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			input_cost REAL NOT NULL,
			output_cost REAL NOT NULL,
			total_cost REAL NOT NULL,
			currency TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cost_records_provider_ts ON cost_records(provider, timestamp);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: init schema: %w", err)
		}
	}
	return nil
}

// ReplaceSnapshot atomically swaps in the rows of one refresh. For every
// provider in providers it deletes all usage and cost rows with
// timestamp >= since, then inserts the full batches. All-or-nothing: a
// failure anywhere rolls back and leaves prior data intact. Providers not
// named keep their rows even when timestamps overlap the window.
func (s *Store) ReplaceSnapshot(ctx context.Context, since time.Time, providers []string, usage []core.UsageRecord, cost []core.CostRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback()

	sinceStr := formatTimestamp(since)
	for _, provider := range providers {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM usage_records WHERE provider = ? AND timestamp >= ?`, provider, sinceStr); err != nil {
			return fmt.Errorf("storage: delete usage window for %s: %w", provider, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cost_records WHERE provider = ? AND timestamp >= ?`, provider, sinceStr); err != nil {
			return fmt.Errorf("storage: delete cost window for %s: %w", provider, err)
		}
	}

	for _, r := range usage {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO usage_records (provider, model, input_tokens, output_tokens, cached_tokens, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.Provider, r.Model, int64(r.InputTokens), int64(r.OutputTokens), int64(r.CachedTokens),
			formatTimestamp(r.Timestamp),
		); err != nil {
			return fmt.Errorf("storage: insert usage row: %w", err)
		}
	}

	for _, r := range cost {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cost_records (provider, model, input_cost, output_cost, total_cost, currency, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Provider, r.Model, r.InputCost, r.OutputCost, r.TotalCost, r.Currency,
			formatTimestamp(r.Timestamp),
		); err != nil {
			return fmt.Errorf("storage: insert cost row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit tx: %w", err)
	}
	return nil
}

// formatTimestamp renders a UTC RFC3339 string. Zero-padded timestamps sort
// lexicographically, which is what the timestamp >= comparisons rely on.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
