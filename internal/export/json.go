package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/summary"
)

type jsonExport struct {
	ExportedAt string          `json:"exported_at"`
	Count      int             `json:"count"`
	WorkOrders []jsonWorkOrder `json:"work_orders"`
}

type jsonWorkOrder struct {
	WONumber   string     `json:"wo_number"`
	JobName    string     `json:"job_name"`
	Client     string     `json:"client,omitempty"`
	Category   string     `json:"category,omitempty"`
	Address    string     `json:"address,omitempty"`
	SalesRep   string     `json:"sales_rep,omitempty"`
	Percentage int        `json:"percentage"`
	Status     string     `json:"status"`
	TotalHours float64    `json:"total_hours"`
	UsedHours  float64    `json:"used_hours"`
	Items      []jsonItem `json:"items"`
}

type jsonItem struct {
	LineNumber        int      `json:"line_number"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Quantity          float64  `json:"quantity"`
	Unit              string   `json:"unit"`
	QuantityCompleted float64  `json:"quantity_completed"`
	HoursUsed         *float64 `json:"hours_used,omitempty"`
	Status            string   `json:"status"`
	Notes             string   `json:"notes,omitempty"`
}

// ToJSON writes the full work order set with per-item progress and the
// derived summary figures.
func ToJSON(orders []store.WorkOrder, progress map[string][]store.ProgressRecord, path string) error {
	out := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(orders),
	}

	for _, wo := range orders {
		records := progress[wo.WONumber]
		s := summary.Summarize(wo, records)

		byIndex := make(map[int]store.ProgressRecord)
		for _, rec := range records {
			byIndex[rec.Index] = rec
		}

		jwo := jsonWorkOrder{
			WONumber:   wo.WONumber,
			JobName:    wo.JobName,
			Client:     wo.Client,
			Category:   wo.Category,
			Address:    wo.Address,
			SalesRep:   wo.SalesRep,
			Percentage: s.Percentage,
			Status:     s.Status,
			TotalHours: s.TotalHours,
			UsedHours:  s.UsedHours,
		}
		for idx, item := range wo.LineItems {
			rec := byIndex[idx]
			jwo.Items = append(jwo.Items, jsonItem{
				LineNumber:        item.LineNumber,
				Name:              item.ItemName,
				Description:       item.Description,
				Quantity:          item.Quantity,
				Unit:              item.Unit,
				QuantityCompleted: rec.QuantityCompleted,
				HoursUsed:         rec.HoursUsed,
				Status:            store.NormalizeStatus(rec.Status),
				Notes:             rec.Notes,
			})
		}
		out.WorkOrders = append(out.WorkOrders, jwo)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
