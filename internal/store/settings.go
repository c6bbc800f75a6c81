package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

// GetSetting returns the value for key, or fallback when the key is absent.
func (s *Store) GetSetting(key, fallback string) string {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return fallback
	}
	return value
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	s.observers.notify(CollectionSettings)
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// SyncEnabled reports whether auto-sync is turned on.
func (s *Store) SyncEnabled() bool {
	return s.GetSetting(SettingSyncEnabled, "1") == "1"
}

// SyncIntervalMinutes returns the interval auto-sync period. Zero means the
// interval timer is disabled; only 0, 15, 30 and 60 are meaningful.
func (s *Store) SyncIntervalMinutes() int {
	v := s.GetSetting(SettingSyncInterval, "30")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 30
	}
	return n
}

// ClientID returns the per-install identifier generated on first run.
func (s *Store) ClientID() string {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, SettingClientID).Scan(&v)
	if err == sql.ErrNoRows {
		return ""
	}
	return v
}
