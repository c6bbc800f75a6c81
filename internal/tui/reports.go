package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/syncer"
)

type reportsModel struct {
	store  *store.Store
	engine *syncer.Engine
	width  int
	height int

	rows  []orderRow
	chart barchart.Model
}

func newReportsModel(s *store.Store, e *syncer.Engine) reportsModel {
	return reportsModel{
		store:  s,
		engine: e,
		chart:  barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	rows []orderRow
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		orders, _ := r.store.ListWorkOrders()
		rows := make([]orderRow, 0, len(orders))
		for _, wo := range orders {
			records, _ := r.store.ListProgress(wo.WONumber)
			rows = append(rows, orderRow{
				order:   wo,
				summary: r.engine.Summaries().Get(wo, records),
			})
		}
		return reportsDataMsg{rows: rows}
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.rows = msg.rows
		r.buildChart()
		return r, nil
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, row := range r.rows {
		s := row.summary
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		switch s.Status {
		case store.StatusCompleted:
			style = lipgloss.NewStyle().Foreground(colorSuccess)
		case store.StatusNotStarted:
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label: truncate(row.order.WONumber, 10),
			Values: []barchart.BarValue{{
				Name:  row.order.WONumber,
				Value: float64(s.Percentage),
				Style: style,
			}},
		})
	}

	if len(bars) > 0 {
		r.chart.PushAll(bars)
		r.chart.Draw()
	}
}

func (r reportsModel) view() string {
	w := r.width - 4

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ",
		subtitleStyle.Render("completion % per work order"),
	)

	if len(r.rows) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			mutedStyle.Render("No data yet"),
		))
	}

	chartView := r.chart.View()
	tableView := r.renderHoursTable(w)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", chartView, "", tableView),
	)
}

func (r reportsModel) renderHoursTable(w int) string {
	var rows []string
	headerRow := mutedStyle.Render(fmt.Sprintf("  %-12s %-24s %10s %10s %10s", "WO#", "Job", "Budgeted", "Used", "Remaining"))
	rows = append(rows, headerRow)
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 70))))

	for _, row := range r.rows {
		s := row.summary
		if s.TotalHours == 0 {
			continue
		}
		rows = append(rows, fmt.Sprintf("  %-12s %-24s %10s %10s %10s",
			row.order.WONumber,
			truncate(row.order.JobName, 24),
			formatHours(s.TotalHours),
			formatHours(s.UsedHours),
			formatHours(s.RemainingHours),
		))
	}
	if len(rows) == 2 {
		rows = append(rows, mutedStyle.Render("  No labor line items"))
	}

	return strings.Join(rows, "\n")
}
