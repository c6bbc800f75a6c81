package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dkeller/fieldops/internal/chat"
	"github.com/dkeller/fieldops/internal/export"
	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/syncer"
)

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	engine *syncer.Engine
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard  dashboardModel
	workOrders workOrdersModel
	reports    reportsModel
	chat       chatModel
	settings   settingsModel

	help   help.Model
	status string
}

func NewApp(s *store.Store, e *syncer.Engine, c *chat.Client) App {
	h := help.New()
	h.ShowAll = false

	return App{
		store:      s,
		engine:     e,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(s, e),
		workOrders: newWorkOrdersModel(s, e),
		reports:    newReportsModel(s, e),
		chat:       newChatModel(c),
		settings:   newSettingsModel(s),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.workOrders.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.chat.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// Chat owns its keyboard while active, global tab keys aside.
		if a.activeView == viewChat {
			switch {
			case key.Matches(msg, keys.Tab1), key.Matches(msg, keys.Tab2),
				key.Matches(msg, keys.Tab3), key.Matches(msg, keys.Tab4),
				key.Matches(msg, keys.Tab5), key.Matches(msg, keys.Tab),
				key.Matches(msg, keys.Quit):
			default:
				return a.updateActiveView(msg)
			}
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Sync):
			a.status = "Syncing..."
			return a, a.doSync()
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, a.dashboard.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewWorkOrders
			return a, a.workOrders.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReports
			return a, a.reports.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewChat
			return a, nil
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 5
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		var cmds []tea.Cmd
		cmds = append(cmds, tickCmd())
		// Keep the footer's sync indicator current
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case ExternalChangeMsg:
		return a, tea.Batch(a.dashboard.loadData(), a.refreshCurrentView())

	case navigateMsg:
		a.activeView = msg.view
		return a, a.refreshCurrentView()

	case statusMsg:
		a.status = msg.text
		return a, nil

	case syncDoneMsg:
		if msg.err != nil {
			a.status = "Sync failed: offline"
		} else {
			a.status = "Synced"
		}
		return a, tea.Batch(a.dashboard.loadData(), a.refreshCurrentView())

	case progressSavedMsg:
		a.status = "Progress saved for " + msg.woNumber
		var cmd tea.Cmd
		a.workOrders, cmd = a.workOrders.update(msg)
		return a, cmd

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewWorkOrders:
		a.workOrders, cmd = a.workOrders.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewChat:
		a.chat, cmd = a.chat.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewWorkOrders:
		return a.workOrders.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadData()
	case viewWorkOrders:
		return a.workOrders.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) doSync() tea.Cmd {
	engine := a.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return syncDoneMsg{err: engine.Sync(ctx)}
	}
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewWorkOrders:
		content = a.workOrders.view()
	case viewReports:
		content = a.reports.view()
	case viewChat:
		content = a.chat.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("fieldops")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	// Sync indicator in footer
	syncInfo := ""
	snap := a.engine.State()
	switch {
	case snap.Status == syncer.StatusSyncing:
		syncInfo = warningStyle.Render(" ⇅ syncing")
	case snap.LastError != nil:
		syncInfo = errorStyle.Render(" ⚠ offline")
	case len(snap.PendingWorkOrders)+len(snap.PendingProgress) > 0:
		syncInfo = warningStyle.Render(fmt.Sprintf(" ● %d pending", len(snap.PendingWorkOrders)+len(snap.PendingProgress)))
	default:
		syncInfo = successStyle.Render(" ✓ " + formatWhen(snap.LastSync))
	}

	left := footerStyle.Render(helpView)
	right := syncInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export")
	formats := []string{"Line items (CSV)", "Summary (CSV)", "Full (JSON)"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 2 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		orders, err := a.store.ListWorkOrders()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		progress, err := a.store.AllProgress()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		home, _ := os.UserHomeDir()
		dateStr := time.Now().Format("2006-01-02")

		var path string
		switch format {
		case 0:
			path = filepath.Join(home, fmt.Sprintf("fieldops-items-%s.csv", dateStr))
			err = export.ToCSV(orders, progress, path)
		case 1:
			path = filepath.Join(home, fmt.Sprintf("fieldops-summary-%s.csv", dateStr))
			err = export.SummaryToCSV(orders, progress, path)
		default:
			path = filepath.Join(home, fmt.Sprintf("fieldops-export-%s.json", dateStr))
			err = export.ToJSON(orders, progress, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		return exportDoneMsg{path: path}
	}
}
