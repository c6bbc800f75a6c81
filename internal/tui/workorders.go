package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/syncer"
)

type workOrdersModel struct {
	store  *store.Store
	engine *syncer.Engine
	width  int
	height int

	rows    []orderRow
	cursor  int
	viewing bool // true = detail view of the selected order
	records []store.ProgressRecord
	itemCur int

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formQty    *string
	formHours  *string
	formStatus *string
	formNotes  *string
}

func newWorkOrdersModel(s *store.Store, e *syncer.Engine) workOrdersModel {
	qty, hours, status, notes := "", "", store.StatusInProgress, ""
	return workOrdersModel{
		store:      s,
		engine:     e,
		formQty:    &qty,
		formHours:  &hours,
		formStatus: &status,
		formNotes:  &notes,
	}
}

func (m *workOrdersModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type workOrdersDataMsg struct {
	rows []orderRow
}

type orderDetailMsg struct {
	records []store.ProgressRecord
}

func (m workOrdersModel) refresh() tea.Cmd {
	return func() tea.Msg {
		orders, _ := m.store.ListWorkOrders()
		rows := make([]orderRow, 0, len(orders))
		for _, wo := range orders {
			records, _ := m.store.ListProgress(wo.WONumber)
			rows = append(rows, orderRow{
				order:   wo,
				summary: m.engine.Summaries().Get(wo, records),
			})
		}
		return workOrdersDataMsg{rows: rows}
	}
}

func (m workOrdersModel) loadDetail() tea.Cmd {
	if m.cursor >= len(m.rows) {
		return nil
	}
	woNumber := m.rows[m.cursor].order.WONumber
	return func() tea.Msg {
		records, _ := m.store.ListProgress(woNumber)
		return orderDetailMsg{records: records}
	}
}

func (m workOrdersModel) update(msg tea.Msg) (workOrdersModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case workOrdersDataMsg:
		m.rows = msg.rows
		if m.cursor >= len(m.rows) {
			m.cursor = max(0, len(m.rows)-1)
		}
		return m, nil

	case orderDetailMsg:
		m.records = msg.records
		return m, nil

	case progressSavedMsg:
		return m, tea.Batch(m.refresh(), m.loadDetail())

	case tea.KeyMsg:
		if m.viewing {
			return m.updateDetail(msg)
		}
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(m.rows) > 0 {
				m.viewing = true
				m.itemCur = 0
				return m, m.loadDetail()
			}
		case key.Matches(msg, keys.Delete):
			if len(m.rows) > 0 {
				woNumber := m.rows[m.cursor].order.WONumber
				return m, m.deleteOrder(woNumber)
			}
		}
	}
	return m, nil
}

func (m workOrdersModel) updateDetail(msg tea.KeyMsg) (workOrdersModel, tea.Cmd) {
	items := m.currentItems()
	switch {
	case key.Matches(msg, keys.Back):
		m.viewing = false
		return m, nil
	case key.Matches(msg, keys.Up):
		if m.itemCur > 0 {
			m.itemCur--
		}
	case key.Matches(msg, keys.Down):
		if m.itemCur < len(items)-1 {
			m.itemCur++
		}
	case key.Matches(msg, keys.Record), key.Matches(msg, keys.Enter):
		if len(items) > 0 {
			return m.showForm()
		}
	}
	return m, nil
}

func (m workOrdersModel) currentItems() []store.LineItem {
	if m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].order.LineItems
}

func (m workOrdersModel) recordFor(idx int) store.ProgressRecord {
	for _, rec := range m.records {
		if rec.Index == idx {
			return rec
		}
	}
	return store.ProgressRecord{Index: idx, Status: store.StatusNotStarted}
}

func (m workOrdersModel) showForm() (workOrdersModel, tea.Cmd) {
	rec := m.recordFor(m.itemCur)
	*m.formQty = strconv.FormatFloat(rec.QuantityCompleted, 'f', -1, 64)
	if rec.HoursUsed != nil {
		*m.formHours = strconv.FormatFloat(*rec.HoursUsed, 'f', -1, 64)
	} else {
		*m.formHours = ""
	}
	*m.formStatus = store.NormalizeStatus(rec.Status)
	*m.formNotes = rec.Notes

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Quantity completed").Value(m.formQty),
			huh.NewInput().Title("Hours used (blank if n/a)").Value(m.formHours),
			huh.NewSelect[string]().Title("Status").
				Options(
					huh.NewOption("Not started", store.StatusNotStarted),
					huh.NewOption("In progress", store.StatusInProgress),
					huh.NewOption("Completed", store.StatusCompleted),
				).Value(m.formStatus),
			huh.NewInput().Title("Notes").Value(m.formNotes),
		).Title("Record Progress"),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m workOrdersModel) updateForm(msg tea.Msg) (workOrdersModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		return m, m.saveProgress()
	}

	return m, cmd
}

func (m workOrdersModel) saveProgress() tea.Cmd {
	woNumber := m.rows[m.cursor].order.WONumber
	idx := m.itemCur

	qty, _ := strconv.ParseFloat(strings.TrimSpace(*m.formQty), 64)
	rec := store.ProgressRecord{
		Index:             idx,
		QuantityCompleted: qty,
		Status:            *m.formStatus,
		Notes:             *m.formNotes,
	}
	if h := strings.TrimSpace(*m.formHours); h != "" {
		if hours, err := strconv.ParseFloat(h, 64); err == nil {
			rec.HoursUsed = &hours
		}
	}

	return func() tea.Msg {
		if err := m.engine.UpdateProgress(context.Background(), woNumber, rec); err != nil {
			return statusMsg{text: fmt.Sprintf("Save error: %v", err), isError: true}
		}
		return progressSavedMsg{woNumber: woNumber}
	}
}

func (m workOrdersModel) deleteOrder(woNumber string) tea.Cmd {
	return func() tea.Msg {
		if err := m.engine.DeleteWorkOrder(context.Background(), woNumber); err != nil {
			return statusMsg{text: fmt.Sprintf("Delete error: %v", err), isError: true}
		}
		return statusMsg{text: "Deleted " + woNumber}
	}
}

func (m workOrdersModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("Record Progress")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()),
		)
	}

	if m.viewing {
		return m.viewDetail(w)
	}
	return m.viewList(w)
}

func (m workOrdersModel) viewList(w int) string {
	title := titleStyle.Render("Work Orders")
	if len(m.rows) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("Nothing cached yet. Press s to sync with the sheet."),
		))
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-24s %-16s %5s %10s", "WO#", "Job", "Client", "Done", "Hours")))
	for i, row := range m.rows {
		s := row.summary
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := fmt.Sprintf("%s%-12s %-24s %-16s %4d%% %5s/%-5s",
			cursor,
			row.order.WONumber,
			truncate(row.order.JobName, 24),
			truncate(row.order.Client, 16),
			s.Percentage,
			formatHours(s.UsedHours),
			formatHours(s.TotalHours),
		)
		rows = append(rows, style.Render(line))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: detail  d: delete  s: sync"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m workOrdersModel) viewDetail(w int) string {
	if m.cursor >= len(m.rows) {
		return panelStyle.Width(w).Render(mutedStyle.Render("No selection"))
	}
	row := m.rows[m.cursor]
	s := row.summary

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("%s — %s", row.order.WONumber, row.order.JobName)),
		subtitleStyle.Render(fmt.Sprintf("%s · %s · %s", row.order.Client, row.order.Category, row.order.Address)),
		fmt.Sprintf("%s %d%% complete  %s  %s used of %s",
			statusGlyph(s.Status), s.Percentage,
			subtitleStyle.Render(fmt.Sprintf("%d/%d items", s.CompletedItems, s.TotalItems)),
			formatHours(s.UsedHours), formatHours(s.TotalHours),
		),
	)

	var rows []string
	rows = append(rows, header, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-4s %-28s %8s %-12s %8s %-12s", "Ln", "Item", "Qty", "Unit", "Done", "Status")))
	for idx, item := range row.order.LineItems {
		rec := m.recordFor(idx)
		cursor := "  "
		style := normalItemStyle
		if idx == m.itemCur {
			cursor = "> "
			style = selectedItemStyle
		}
		line := fmt.Sprintf("%s%-4d %-28s %8g %-12s %8g %s %-12s",
			cursor,
			item.LineNumber,
			truncate(item.ItemName, 28),
			item.Quantity,
			item.Unit,
			rec.QuantityCompleted,
			statusGlyph(rec.Status),
			rec.Status,
		)
		rows = append(rows, style.Render(line))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  r/enter: record progress  esc: back"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
