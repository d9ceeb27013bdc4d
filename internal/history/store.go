// Package history persists a record of finished builds in a local SQLite
// database so `srpack history` can answer what was built, when, and how big
// it came out.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one finished build.
type Record struct {
	ID         int64
	OutputPath string
	Size       int64
	Checksum   uint32
	Models     []string
	Languages  []string
	Elapsed    time.Duration
	CreatedAt  time.Time
}

// Store manages build history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS builds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    output_path TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    checksum INTEGER NOT NULL,
    models TEXT NOT NULL,
    languages TEXT NOT NULL,
    elapsed_ms INTEGER NOT NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds (created_at DESC)`,
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add inserts a build record and returns its ID.
func (s *Store) Add(ctx context.Context, rec Record) (int64, error) {
	models, err := json.Marshal(rec.Models)
	if err != nil {
		return 0, fmt.Errorf("encode models: %w", err)
	}
	languages, err := json.Marshal(rec.Languages)
	if err != nil {
		return 0, fmt.Errorf("encode languages: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (output_path, size_bytes, checksum, models, languages, elapsed_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.OutputPath,
		rec.Size,
		rec.Checksum,
		string(models),
		string(languages),
		rec.Elapsed.Milliseconds(),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert build: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit build records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, output_path, size_bytes, checksum, models, languages, elapsed_ms, created_at
         FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			models    string
			languages string
			elapsedMS int64
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.OutputPath, &rec.Size, &rec.Checksum,
			&models, &languages, &elapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		if err := json.Unmarshal([]byte(models), &rec.Models); err != nil {
			return nil, fmt.Errorf("decode models: %w", err)
		}
		if err := json.Unmarshal([]byte(languages), &rec.Languages); err != nil {
			return nil, fmt.Errorf("decode languages: %w", err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			rec.CreatedAt = ts
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
