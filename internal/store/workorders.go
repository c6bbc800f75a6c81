package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// decodeLineItems parses the stored JSON array. Corruption fails soft: the
// work order behaves as if it had no line items, and we log instead of
// surfacing an error to whatever is rendering.
func (s *Store) decodeLineItems(woNumber, raw string) []LineItem {
	if raw == "" {
		return nil
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("corrupt line items in cache, treating as empty",
			"wo_number", woNumber, "error", err)
		return nil
	}
	return items
}

func (s *Store) scanWorkOrder(scan func(dest ...any) error) (*WorkOrder, error) {
	var wo WorkOrder
	var items, lastUpdated string
	err := scan(
		&wo.WONumber, &wo.JobName, &wo.Client, &wo.Category, &wo.Status,
		&wo.Address, &wo.JobNotes, &wo.SalesRep, &items, &lastUpdated,
	)
	if err != nil {
		return nil, err
	}
	wo.LineItems = s.decodeLineItems(wo.WONumber, items)
	wo.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &wo, nil
}

const workOrderCols = `wo_number, job_name, client, category, status, address, job_notes, sales_rep, line_items, last_updated`

// ListWorkOrders returns all cached work orders in insertion order.
func (s *Store) ListWorkOrders() ([]WorkOrder, error) {
	rows, err := s.db.Query(`SELECT ` + workOrderCols + ` FROM work_orders ORDER BY position, wo_number`)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	var orders []WorkOrder
	for rows.Next() {
		wo, err := s.scanWorkOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *wo)
	}
	return orders, rows.Err()
}

// GetWorkOrder returns the work order for woNumber, or nil when absent.
// Absence is not an error.
func (s *Store) GetWorkOrder(woNumber string) (*WorkOrder, error) {
	wo, err := s.scanWorkOrder(
		s.db.QueryRow(`SELECT `+workOrderCols+` FROM work_orders WHERE wo_number = ?`, woNumber).Scan,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work order %s: %w", woNumber, err)
	}
	return wo, nil
}

// PutWorkOrder upserts by WONumber, so the same order can never end up under
// two cache entries. LastUpdated is stamped on every write.
func (s *Store) PutWorkOrder(wo WorkOrder) error {
	if wo.WONumber == "" {
		return fmt.Errorf("put work order: %w", ErrMissingWONumber)
	}

	items, err := json.Marshal(wo.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}
	if wo.LineItems == nil {
		items = []byte("[]")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.Exec(`
		INSERT INTO work_orders
			(wo_number, job_name, client, category, status, address, job_notes, sales_rep, line_items, last_updated, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM work_orders))
		ON CONFLICT(wo_number) DO UPDATE SET
			job_name = excluded.job_name,
			client = excluded.client,
			category = excluded.category,
			status = excluded.status,
			address = excluded.address,
			job_notes = excluded.job_notes,
			sales_rep = excluded.sales_rep,
			line_items = excluded.line_items,
			last_updated = excluded.last_updated`,
		wo.WONumber, wo.JobName, wo.Client, wo.Category, wo.Status,
		wo.Address, wo.JobNotes, wo.SalesRep, string(items), now,
	)
	if err != nil {
		return fmt.Errorf("put work order %s: %w", wo.WONumber, err)
	}

	s.observers.notify(CollectionWorkOrders)
	return nil
}

// PutWorkOrders upserts a batch, notifying observers once.
func (s *Store) PutWorkOrders(orders []WorkOrder) error {
	for _, wo := range orders {
		if wo.WONumber == "" {
			return fmt.Errorf("put work orders: %w", ErrMissingWONumber)
		}
	}
	for _, wo := range orders {
		items, err := json.Marshal(wo.LineItems)
		if err != nil {
			return fmt.Errorf("encode line items: %w", err)
		}
		if wo.LineItems == nil {
			items = []byte("[]")
		}
		now := time.Now().UTC().Format(time.RFC3339)
		_, err = s.db.Exec(`
			INSERT INTO work_orders
				(wo_number, job_name, client, category, status, address, job_notes, sales_rep, line_items, last_updated, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
				(SELECT COALESCE(MAX(position), 0) + 1 FROM work_orders))
			ON CONFLICT(wo_number) DO UPDATE SET
				job_name = excluded.job_name,
				client = excluded.client,
				category = excluded.category,
				status = excluded.status,
				address = excluded.address,
				job_notes = excluded.job_notes,
				sales_rep = excluded.sales_rep,
				line_items = excluded.line_items,
				last_updated = excluded.last_updated`,
			wo.WONumber, wo.JobName, wo.Client, wo.Category, wo.Status,
			wo.Address, wo.JobNotes, wo.SalesRep, string(items), now,
		)
		if err != nil {
			return fmt.Errorf("put work order %s: %w", wo.WONumber, err)
		}
	}
	if len(orders) > 0 {
		s.observers.notify(CollectionWorkOrders)
	}
	return nil
}

// DeleteWorkOrder removes a work order and its progress. Deleting a missing
// order is a no-op.
func (s *Store) DeleteWorkOrder(woNumber string) error {
	res, err := s.db.Exec(`DELETE FROM work_orders WHERE wo_number = ?`, woNumber)
	if err != nil {
		return fmt.Errorf("delete work order %s: %w", woNumber, err)
	}
	if _, err := s.db.Exec(`DELETE FROM progress WHERE wo_number = ?`, woNumber); err != nil {
		return fmt.Errorf("delete progress for %s: %w", woNumber, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.observers.notify(CollectionWorkOrders)
	}
	return nil
}

// CountWorkOrders reports how many work orders are cached.
func (s *Store) CountWorkOrders() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM work_orders`).Scan(&n)
	return n, err
}
