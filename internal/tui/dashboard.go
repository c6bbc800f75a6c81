package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/syncer"
)

type dashboardModel struct {
	store  *store.Store
	engine *syncer.Engine
	width  int
	height int

	rows     []orderRow
	snapshot syncer.Snapshot
}

func newDashboardModel(s *store.Store, e *syncer.Engine) dashboardModel {
	return dashboardModel{store: s, engine: e}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	rows     []orderRow
	snapshot syncer.Snapshot
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		orders, _ := d.store.ListWorkOrders()
		rows := make([]orderRow, 0, len(orders))
		for _, wo := range orders {
			records, _ := d.store.ListProgress(wo.WONumber)
			rows = append(rows, orderRow{
				order:   wo,
				summary: d.engine.Summaries().Get(wo, records),
			})
		}
		return dashboardDataMsg{rows: rows, snapshot: d.engine.State()}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.rows = msg.rows
		d.snapshot = msg.snapshot
		return d, nil
	case tickMsg:
		// Refresh the sync panel every few seconds without a full reload.
		d.snapshot = d.engine.State()
		return d, nil
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	contentWidth := d.width - 4

	cards := d.renderCards(contentWidth)
	syncPanel := d.renderSyncPanel(contentWidth)
	recent := d.renderRecentPanel(contentWidth)

	return lipgloss.JoinVertical(lipgloss.Left, cards, syncPanel, recent)
}

func (d dashboardModel) metrics() (total, active, done int, pct int, used, remaining float64) {
	var completedItems, totalItems int
	for _, row := range d.rows {
		total++
		switch row.summary.Status {
		case store.StatusCompleted:
			done++
		case store.StatusInProgress:
			active++
		}
		completedItems += row.summary.CompletedItems
		totalItems += row.summary.TotalItems
		used += row.summary.UsedHours
		remaining += row.summary.RemainingHours
	}
	if totalItems > 0 {
		pct = completedItems * 100 / totalItems
	}
	return
}

func (d dashboardModel) renderCards(w int) string {
	total, active, done, pct, used, remaining := d.metrics()

	card := func(label, value string) string {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			cardValueStyle.Render(value),
			subtitleStyle.Render(label),
		))
	}

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("work orders", fmt.Sprintf("%d", total)),
		card("active", fmt.Sprintf("%d", active)),
		card("completed", fmt.Sprintf("%d", done)),
		card("completion", fmt.Sprintf("%d%%", pct)),
		card("hours used", formatHours(used)),
		card("hours left", formatHours(remaining)),
	)
	if lipgloss.Width(cards) > w {
		// Narrow terminal: drop the hour cards.
		cards = lipgloss.JoinHorizontal(lipgloss.Top,
			card("work orders", fmt.Sprintf("%d", total)),
			card("active", fmt.Sprintf("%d", active)),
			card("completion", fmt.Sprintf("%d%%", pct)),
		)
	}
	return cards
}

func (d dashboardModel) renderSyncPanel(w int) string {
	title := titleStyle.Render("Sync")

	var state string
	if d.snapshot.Status == syncer.StatusSyncing {
		state = warningStyle.Render("● syncing")
	} else if d.snapshot.LastError != nil {
		state = errorStyle.Render("■ offline — working from local cache")
	} else {
		state = successStyle.Render("● up to date")
	}

	lastSync := subtitleStyle.Render("last sync: " + formatWhen(d.snapshot.LastSync))

	pending := ""
	if n := len(d.snapshot.PendingWorkOrders) + len(d.snapshot.PendingProgress); n > 0 {
		pending = warningStyle.Render(fmt.Sprintf("  %d pending retr%s", n, pluralY(n)))
	}

	row := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", state, "  ", lastSync, pending)
	return panelStyle.Width(w).Render(row)
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Work Orders")
	if len(d.rows) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No work orders yet. Sync with the sheet (s) or check Settings."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	shown := d.rows
	if len(shown) > 6 {
		shown = shown[len(shown)-6:]
	}
	for _, row := range shown {
		s := row.summary
		line := fmt.Sprintf("  %s %-10s %-24s %3d%%  %s",
			statusGlyph(s.Status),
			row.order.WONumber,
			truncate(row.order.JobName, 24),
			s.Percentage,
			subtitleStyle.Render(fmt.Sprintf("%d/%d items", s.CompletedItems, s.TotalItems)),
		)
		rows = append(rows, line)
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
