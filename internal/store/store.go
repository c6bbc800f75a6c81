package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the local cache: the single source of truth for rendering.
// The remote sheet is an eventually-consistent mirror of it.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	observers *observerSet
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:        db,
		path:      dbPath,
		logger:    slog.Default(),
		observers: newObserverSet(),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.ensureClientID(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure client id: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

// SetLogger replaces the logger used for fail-soft warnings.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Path returns the database file path ("" for in-memory stores).
func (s *Store) Path() string {
	if s.path == ":memory:" {
		return ""
	}
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS work_orders (
		wo_number    TEXT PRIMARY KEY,
		job_name     TEXT NOT NULL DEFAULT '',
		client       TEXT NOT NULL DEFAULT '',
		category     TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT '',
		address      TEXT NOT NULL DEFAULT '',
		job_notes    TEXT NOT NULL DEFAULT '',
		sales_rep    TEXT NOT NULL DEFAULT '',
		line_items   TEXT NOT NULL DEFAULT '[]',
		last_updated TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		position     INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS progress (
		wo_number          TEXT NOT NULL,
		item_index         INTEGER NOT NULL,
		quantity_completed REAL NOT NULL DEFAULT 0,
		hours_used         REAL,
		status             TEXT NOT NULL DEFAULT 'not-started',
		notes              TEXT NOT NULL DEFAULT '',
		last_updated       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		modified_by        TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (wo_number, item_index)
	);

	CREATE TABLE IF NOT EXISTS sync_state (
		id        INTEGER PRIMARY KEY CHECK (id = 1),
		last_sync TEXT NOT NULL DEFAULT ''
	);
	INSERT OR IGNORE INTO sync_state (id, last_sync) VALUES (1, '');

	CREATE TABLE IF NOT EXISTS pending (
		kind TEXT NOT NULL,
		id   TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('sync_enabled',          '1'),
		('sync_interval_minutes', '30'),
		('sheet_url',             ''),
		('operator_name',         '');
	`
	_, err := s.db.Exec(ddl)
	return err
}

// ensureClientID generates the per-install id on first run. It is a device
// identity shown in the settings view; nothing on the wire carries it.
func (s *Store) ensureClientID() error {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, SettingClientID).Scan(&v)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)`,
			SettingClientID, uuid.New().String(),
		)
	}
	return err
}

// DefaultDBPath returns ~/.config/fieldops/fieldops.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "fieldops", "fieldops.db"), nil
}
