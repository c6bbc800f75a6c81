package store

import (
	"database/sql"
	"fmt"
	"time"
)

func scanProgress(scan func(dest ...any) error) (*ProgressRecord, error) {
	var rec ProgressRecord
	var hours sql.NullFloat64
	var lastUpdated string
	err := scan(
		&rec.Index, &rec.QuantityCompleted, &hours, &rec.Status,
		&rec.Notes, &lastUpdated, &rec.ModifiedBy,
	)
	if err != nil {
		return nil, err
	}
	if hours.Valid {
		rec.HoursUsed = &hours.Float64
	}
	rec.Status = NormalizeStatus(rec.Status)
	rec.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &rec, nil
}

const progressCols = `item_index, quantity_completed, hours_used, status, notes, last_updated, modified_by`

// ListProgress returns the progress records for one work order, ordered by
// item index. A work order with no recorded progress yields an empty slice.
func (s *Store) ListProgress(woNumber string) ([]ProgressRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+progressCols+` FROM progress WHERE wo_number = ? ORDER BY item_index`,
		woNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress for %s: %w", woNumber, err)
	}
	defer rows.Close()

	var records []ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// AllProgress returns every progress record keyed by work order number.
func (s *Store) AllProgress() (map[string][]ProgressRecord, error) {
	rows, err := s.db.Query(
		`SELECT wo_number, ` + progressCols + ` FROM progress ORDER BY wo_number, item_index`,
	)
	if err != nil {
		return nil, fmt.Errorf("all progress: %w", err)
	}
	defer rows.Close()

	all := make(map[string][]ProgressRecord)
	for rows.Next() {
		var woNumber string
		var rec ProgressRecord
		var hours sql.NullFloat64
		var lastUpdated string
		err := rows.Scan(
			&woNumber, &rec.Index, &rec.QuantityCompleted, &hours,
			&rec.Status, &rec.Notes, &lastUpdated, &rec.ModifiedBy,
		)
		if err != nil {
			return nil, err
		}
		if hours.Valid {
			rec.HoursUsed = &hours.Float64
		}
		rec.Status = NormalizeStatus(rec.Status)
		rec.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
		all[woNumber] = append(all[woNumber], rec)
	}
	return all, rows.Err()
}

// PutProgress upserts one record. The write is synchronous and durable; the
// sync engine pushes it to the sheet afterwards, not the other way around.
func (s *Store) PutProgress(woNumber string, rec ProgressRecord) error {
	if woNumber == "" {
		return fmt.Errorf("put progress: %w", ErrMissingWONumber)
	}

	var hours any
	if rec.HoursUsed != nil {
		hours = *rec.HoursUsed
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO progress
			(wo_number, item_index, quantity_completed, hours_used, status, notes, last_updated, modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(wo_number, item_index) DO UPDATE SET
			quantity_completed = excluded.quantity_completed,
			hours_used = excluded.hours_used,
			status = excluded.status,
			notes = excluded.notes,
			last_updated = excluded.last_updated,
			modified_by = excluded.modified_by`,
		woNumber, rec.Index, rec.QuantityCompleted, hours,
		NormalizeStatus(rec.Status), rec.Notes, now, rec.ModifiedBy,
	)
	if err != nil {
		return fmt.Errorf("put progress %s[%d]: %w", woNumber, rec.Index, err)
	}

	s.observers.notify(CollectionProgress)
	return nil
}

// PutProgressItems replaces the records for woNumber with the given items,
// notifying observers once.
func (s *Store) PutProgressItems(woNumber string, items []ProgressRecord) error {
	if woNumber == "" {
		return fmt.Errorf("put progress items: %w", ErrMissingWONumber)
	}
	for _, rec := range items {
		var hours any
		if rec.HoursUsed != nil {
			hours = *rec.HoursUsed
		}
		now := time.Now().UTC().Format(time.RFC3339)
		_, err := s.db.Exec(`
			INSERT INTO progress
				(wo_number, item_index, quantity_completed, hours_used, status, notes, last_updated, modified_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(wo_number, item_index) DO UPDATE SET
				quantity_completed = excluded.quantity_completed,
				hours_used = excluded.hours_used,
				status = excluded.status,
				notes = excluded.notes,
				last_updated = excluded.last_updated,
				modified_by = excluded.modified_by`,
			woNumber, rec.Index, rec.QuantityCompleted, hours,
			NormalizeStatus(rec.Status), rec.Notes, now, rec.ModifiedBy,
		)
		if err != nil {
			return fmt.Errorf("put progress %s[%d]: %w", woNumber, rec.Index, err)
		}
	}
	if len(items) > 0 {
		s.observers.notify(CollectionProgress)
	}
	return nil
}
