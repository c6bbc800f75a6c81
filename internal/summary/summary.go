// Package summary derives completion metrics for work orders. Summarize is a
// total function: any well-typed input produces a summary, with zeroes
// substituted for missing data.
package summary

import (
	"math"
	"strings"

	"github.com/dkeller/fieldops/internal/store"
)

// Summary is the derived view of one work order's progress.
type Summary struct {
	WONumber       string
	JobName        string
	Percentage     int
	CompletedItems int
	TotalItems     int
	TotalHours     float64
	UsedHours      float64
	RemainingHours float64
	Status         string
}

// laborMarkers flags line items that represent labor. Matching on the item
// name is a heuristic carried over from how the sheets are filled in by the
// sales team; false positives and negatives are expected and accepted.
var laborMarkers = []string{"hour", "labor", "man"}

func isLaborItem(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range laborMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Summarize computes completion percentage and labor hours for one work
// order. Records reference line items by position, not by line number.
func Summarize(wo store.WorkOrder, records []store.ProgressRecord) Summary {
	s := Summary{
		WONumber:   wo.WONumber,
		JobName:    wo.JobName,
		TotalItems: len(wo.LineItems),
		Status:     store.StatusNotStarted,
	}

	byIndex := make(map[int]store.ProgressRecord, len(records))
	for _, rec := range records {
		byIndex[rec.Index] = rec
	}

	for _, rec := range records {
		if store.NormalizeStatus(rec.Status) == store.StatusCompleted {
			s.CompletedItems++
		}
	}

	if s.TotalItems > 0 {
		s.Percentage = int(math.Floor(float64(s.CompletedItems)/float64(s.TotalItems)*100 + 0.5))
	}

	for idx, item := range wo.LineItems {
		if !isLaborItem(item.ItemName) {
			continue
		}
		s.TotalHours += item.Quantity
		if rec, ok := byIndex[idx]; ok {
			if rec.HoursUsed != nil {
				s.UsedHours += *rec.HoursUsed
			} else {
				s.UsedHours += rec.QuantityCompleted
			}
		}
	}

	s.RemainingHours = math.Max(0, s.TotalHours-s.UsedHours)

	switch {
	case s.Percentage == 100:
		s.Status = store.StatusCompleted
	case s.Percentage > 0:
		s.Status = store.StatusInProgress
	}

	return s
}
