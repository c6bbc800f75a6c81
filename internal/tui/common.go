package tui

import (
	"fmt"
	"time"

	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/summary"
	"github.com/dkeller/fieldops/internal/syncer"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewWorkOrders
	viewReports
	viewChat
	viewSettings
)

var viewNames = []string{"Dashboard", "Work Orders", "Reports", "Chat", "Settings"}

// --- Messages ---

type tickMsg time.Time

type statusMsg struct {
	text    string
	isError bool
}

type syncDoneMsg struct {
	err error
}

type syncStateMsg struct {
	snapshot syncer.Snapshot
}

type progressSavedMsg struct {
	woNumber string
}

type chatReplyMsg struct {
	text      string
	transient string // "rate-limited", "overloaded", "offline" or ""
}

type navigateMsg struct {
	view viewState
}

type exportDoneMsg struct {
	path string
}

type formDoneMsg struct{}
type formCancelMsg struct{}

// ExternalChangeMsg reports that another process wrote the database. Sent
// from outside the program via tea.Program.Send.
type ExternalChangeMsg struct{}

// orderRow pairs a work order with its derived summary for list rendering.
type orderRow struct {
	order   store.WorkOrder
	summary summary.Summary
}

// --- Helpers ---

func formatHours(h float64) string {
	return fmt.Sprintf("%.1fh", h)
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	d := time.Since(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format("Jan 02 15:04")
	}
}

func statusGlyph(status string) string {
	switch status {
	case store.StatusCompleted:
		return "✓"
	case store.StatusInProgress:
		return "●"
	default:
		return "○"
	}
}
