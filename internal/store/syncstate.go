package store

import (
	"fmt"
	"time"
)

// LastSync returns the timestamp of the last confirmed successful push or
// pull, or nil when no sync has ever completed.
func (s *Store) LastSync() (*time.Time, error) {
	var raw string
	err := s.db.QueryRow(`SELECT last_sync FROM sync_state WHERE id = 1`).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("read last sync: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("unparsable last sync timestamp, treating as never synced", "value", raw)
		return nil, nil
	}
	return &t, nil
}

func (s *Store) SetLastSync(t time.Time) error {
	_, err := s.db.Exec(
		`UPDATE sync_state SET last_sync = ? WHERE id = 1`,
		t.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set last sync: %w", err)
	}
	return nil
}

// AddPending records a failed remote write so the sync engine retries it. The
// table mirrors the engine's in-memory sets across restarts.
func (s *Store) AddPending(kind PendingKind, id string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO pending (kind, id) VALUES (?, ?)`,
		string(kind), id,
	)
	if err != nil {
		return fmt.Errorf("add pending %s %s: %w", kind, id, err)
	}
	return nil
}

// RemovePending clears a retry entry once the corresponding push succeeds.
func (s *Store) RemovePending(kind PendingKind, id string) error {
	_, err := s.db.Exec(
		`DELETE FROM pending WHERE kind = ? AND id = ?`,
		string(kind), id,
	)
	if err != nil {
		return fmt.Errorf("remove pending %s %s: %w", kind, id, err)
	}
	return nil
}

// ListPending returns the retry ids for one kind.
func (s *Store) ListPending(kind PendingKind) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM pending WHERE kind = ? ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list pending %s: %w", kind, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
