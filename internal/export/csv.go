package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/summary"
)

// ToCSV writes one row per line item with its progress, preceded by nothing
// fancier than a header row. Items with no recorded progress export with
// zeroes and not-started.
func ToCSV(orders []store.WorkOrder, progress map[string][]store.ProgressRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"WO Number", "Job Name", "Client", "Line #", "Item", "Quantity", "Unit",
		"Qty Completed", "Hours Used", "Status", "Notes", "Modified By",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, wo := range orders {
		byIndex := make(map[int]store.ProgressRecord)
		for _, rec := range progress[wo.WONumber] {
			byIndex[rec.Index] = rec
		}

		for idx, item := range wo.LineItems {
			rec := byIndex[idx]
			hours := ""
			if rec.HoursUsed != nil {
				hours = fmt.Sprintf("%g", *rec.HoursUsed)
			}
			row := []string{
				wo.WONumber,
				wo.JobName,
				wo.Client,
				fmt.Sprintf("%d", item.LineNumber),
				item.ItemName,
				fmt.Sprintf("%g", item.Quantity),
				item.Unit,
				fmt.Sprintf("%g", rec.QuantityCompleted),
				hours,
				store.NormalizeStatus(rec.Status),
				rec.Notes,
				rec.ModifiedBy,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return w.Error()
}

// SummaryToCSV writes one row per work order with the derived metrics.
func SummaryToCSV(orders []store.WorkOrder, progress map[string][]store.ProgressRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"WO Number", "Job Name", "Client", "Completion %", "Items Done",
		"Total Items", "Total Hours", "Hours Used", "Hours Remaining", "Status", "Exported",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, wo := range orders {
		s := summary.Summarize(wo, progress[wo.WONumber])
		row := []string{
			wo.WONumber,
			wo.JobName,
			wo.Client,
			fmt.Sprintf("%d", s.Percentage),
			fmt.Sprintf("%d", s.CompletedItems),
			fmt.Sprintf("%d", s.TotalItems),
			fmt.Sprintf("%g", s.TotalHours),
			fmt.Sprintf("%g", s.UsedHours),
			fmt.Sprintf("%g", s.RemainingHours),
			s.Status,
			now,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}
