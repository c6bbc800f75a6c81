package store

import (
	"strings"
	"time"
)

// WorkOrder is one unit of billable landscaping work. WONumber is assigned by
// the business (it comes in on the source document), never generated here.
type WorkOrder struct {
	WONumber    string
	JobName     string
	Client      string
	Category    string
	Status      string
	Address     string
	JobNotes    string
	SalesRep    string
	LineItems   []LineItem
	LastUpdated time.Time
}

// LineItem is one billable item within a work order. LineNumber is the
// original document line number; gaps are preserved, never renumbered.
type LineItem struct {
	LineNumber  int     `json:"lineNumber"`
	ItemName    string  `json:"itemName"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"` // may be fractional or negative (credits)
	Unit        string  `json:"unit"`
}

// Units is the fixed vocabulary for LineItem.Unit.
var Units = []string{
	"hours", "each", "yards", "pallet", "tons", "linear-feet",
	"square-feet", "bags", "flat", "weeks", "days", "zones",
	"pounds", "bales",
}

// Progress statuses.
const (
	StatusNotStarted = "not-started"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// NormalizeStatus maps anything outside the three known statuses to
// not-started, so a bad value from the sheet never breaks aggregation.
func NormalizeStatus(s string) string {
	switch strings.ToLower(s) {
	case StatusInProgress, StatusCompleted:
		return strings.ToLower(s)
	default:
		return StatusNotStarted
	}
}

// ProgressRecord tracks completion of one line item. Index references the
// line item's position within the work order, not its LineNumber.
type ProgressRecord struct {
	Index             int
	QuantityCompleted float64
	HoursUsed         *float64 // nil when the crew only reported quantity
	Status            string
	Notes             string
	LastUpdated       time.Time
	ModifiedBy        string
}

// PendingKind distinguishes entries in the pending-retry table.
type PendingKind string

const (
	PendingWorkOrder PendingKind = "work_order"
	PendingProgress  PendingKind = "progress"
)

// Setting keys.
const (
	SettingSyncEnabled  = "sync_enabled"
	SettingSyncInterval = "sync_interval_minutes" // 0, 15, 30 or 60
	SettingSheetURL     = "sheet_url"
	SettingOperatorName = "operator_name"
	SettingClientID     = "client_id"
)

type Setting struct {
	Key   string
	Value string
}
