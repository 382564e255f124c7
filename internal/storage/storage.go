// Package storage persists catalog snapshots in SQLite so a restart within
// the cache TTL can serve from disk instead of re-fetching the whole
// registry.
package storage

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Snapshot is one materialized catalog collection, stored as a JSON blob.
type Snapshot struct {
	ID        int64
	Kind      string // "schools" or "programs"
	Data      []byte
	ItemCount int
	FetchedAt time.Time
}

type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

func NewSQLiteStore(logger *slog.Logger, path string) (*SQLiteStore, error) {
	originalPath := path
	if idx := strings.Index(path, "?"); idx != -1 {
		originalPath = path[:idx]
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A single connection avoids "database is locked" errors with
	// modernc.org/sqlite; snapshot writes are rare.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	// The _journal_mode query param does not work with modernc.org/sqlite,
	// so set it via PRAGMA after opening.
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		logger.Warn("failed to set WAL journal mode", "error", err)
	} else {
		logger.Info("SQLite journal mode set", "mode", journalMode, "path", originalPath)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		logger.Warn("failed to set busy timeout", "error", err)
	}

	return &SQLiteStore{db: db, logger: logger.With("component", "storage"), dbPath: originalPath}, nil
}

func (s *SQLiteStore) Init() error {
	query := `
	CREATE TABLE IF NOT EXISTS catalog_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		data BLOB NOT NULL,
		item_count INTEGER NOT NULL,
		fetched_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_kind ON catalog_snapshots(kind, fetched_at DESC);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores a new snapshot and prunes older ones of the same kind.
func (s *SQLiteStore) SaveSnapshot(snap Snapshot) error {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO catalog_snapshots (kind, data, item_count, fetched_at) VALUES (?, ?, ?, ?)`,
		snap.Kind, snap.Data, snap.ItemCount, snap.FetchedAt.UTC().Format("2006-01-02 15:04:05.999"),
	)
	if err != nil {
		return err
	}

	// Only the most recent snapshot per kind is ever read.
	_, err = tx.Exec(
		`DELETE FROM catalog_snapshots WHERE kind = ? AND id NOT IN (
			SELECT id FROM catalog_snapshots WHERE kind = ? ORDER BY fetched_at DESC, id DESC LIMIT 1
		)`,
		snap.Kind, snap.Kind,
	)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("catalog snapshot saved", "kind", snap.Kind, "items", snap.ItemCount)
	return nil
}

// LatestSnapshot returns the most recent snapshot of the given kind, or nil
// when none exists.
func (s *SQLiteStore) LatestSnapshot(kind string) (*Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, kind, data, item_count, fetched_at
		 FROM catalog_snapshots WHERE kind = ?
		 ORDER BY fetched_at DESC, id DESC LIMIT 1`,
		kind,
	)

	var snap Snapshot
	var fetchedAt string
	err := row.Scan(&snap.ID, &snap.Kind, &snap.Data, &snap.ItemCount, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap.FetchedAt, err = time.Parse("2006-01-02 15:04:05.999", fetchedAt)
	if err != nil {
		// Older rows may lack fractional seconds.
		snap.FetchedAt, err = time.Parse("2006-01-02 15:04:05", fetchedAt)
		if err != nil {
			return nil, err
		}
	}
	snap.FetchedAt = snap.FetchedAt.UTC()
	return &snap, nil
}

// DeleteSnapshots removes all snapshots of the given kind.
func (s *SQLiteStore) DeleteSnapshots(kind string) error {
	_, err := s.db.Exec(`DELETE FROM catalog_snapshots WHERE kind = ?`, kind)
	return err
}
