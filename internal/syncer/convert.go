package syncer

import (
	"time"

	"github.com/dkeller/fieldops/internal/remote"
	"github.com/dkeller/fieldops/internal/store"
)

func toWireOrder(wo store.WorkOrder) remote.WorkOrder {
	items := make([]remote.LineItem, len(wo.LineItems))
	for i, li := range wo.LineItems {
		items[i] = remote.LineItem{
			LineNumber:  li.LineNumber,
			ItemName:    li.ItemName,
			Description: li.Description,
			Quantity:    li.Quantity,
			Unit:        li.Unit,
		}
	}
	out := remote.WorkOrder{
		WONumber:  wo.WONumber,
		JobName:   wo.JobName,
		Client:    wo.Client,
		Category:  wo.Category,
		Status:    wo.Status,
		Address:   wo.Address,
		JobNotes:  wo.JobNotes,
		SalesRep:  wo.SalesRep,
		LineItems: items,
	}
	if !wo.LastUpdated.IsZero() {
		out.LastModified = wo.LastUpdated.UTC().Format(time.RFC3339)
	}
	return out
}

func fromWireOrder(wo remote.WorkOrder) store.WorkOrder {
	items := make([]store.LineItem, len(wo.LineItems))
	for i, li := range wo.LineItems {
		items[i] = store.LineItem{
			LineNumber:  li.LineNumber,
			ItemName:    li.ItemName,
			Description: li.Description,
			Quantity:    li.Quantity,
			Unit:        li.Unit,
		}
	}
	out := store.WorkOrder{
		WONumber:  wo.WONumber,
		JobName:   wo.JobName,
		Client:    wo.Client,
		Category:  wo.Category,
		Status:    wo.Status,
		Address:   wo.Address,
		JobNotes:  wo.JobNotes,
		SalesRep:  wo.SalesRep,
		LineItems: items,
	}
	if t, err := time.Parse(time.RFC3339, wo.LastModified); err == nil {
		out.LastUpdated = t
	}
	return out
}

func toWireProgress(records []store.ProgressRecord) []remote.ProgressItem {
	items := make([]remote.ProgressItem, len(records))
	for i, rec := range records {
		items[i] = remote.ProgressItem{
			Index:             rec.Index,
			QuantityCompleted: rec.QuantityCompleted,
			HoursUsed:         rec.HoursUsed,
			Status:            store.NormalizeStatus(rec.Status),
			Notes:             rec.Notes,
			ModifiedBy:        rec.ModifiedBy,
		}
		if !rec.LastUpdated.IsZero() {
			items[i].LastUpdated = rec.LastUpdated.UTC().Format(time.RFC3339)
		}
	}
	return items
}

func fromWireProgress(items []remote.ProgressItem) []store.ProgressRecord {
	records := make([]store.ProgressRecord, len(items))
	for i, item := range items {
		records[i] = store.ProgressRecord{
			Index:             item.Index,
			QuantityCompleted: item.QuantityCompleted,
			HoursUsed:         item.HoursUsed,
			Status:            store.NormalizeStatus(item.Status),
			Notes:             item.Notes,
			ModifiedBy:        item.ModifiedBy,
		}
		if t, err := time.Parse(time.RFC3339, item.LastUpdated); err == nil {
			records[i].LastUpdated = t
		}
	}
	return records
}
