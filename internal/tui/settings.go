package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dkeller/fieldops/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	syncEnabled  *bool
	syncInterval *string
	sheetURL     *string
	operatorName *string
}

func newSettingsModel(s *store.Store) settingsModel {
	se := true
	si, su, op := "", "", ""
	return settingsModel{
		store:        s,
		syncEnabled:  &se,
		syncInterval: &si,
		sheetURL:     &su,
		operatorName: &op,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Record):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	// Load current values
	*s.syncEnabled = s.store.SyncEnabled()
	*s.syncInterval = s.store.GetSetting(store.SettingSyncInterval, "30")
	*s.sheetURL = s.store.GetSetting(store.SettingSheetURL, "")
	*s.operatorName = s.store.GetSetting(store.SettingOperatorName, "")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Background sync").
				Affirmative("Enabled").Negative("Disabled").
				Value(s.syncEnabled),
			huh.NewSelect[string]().Title("Sync interval").
				Options(
					huh.NewOption("Manual only", "0"),
					huh.NewOption("Every 15 minutes", "15"),
					huh.NewOption("Every 30 minutes", "30"),
					huh.NewOption("Every hour", "60"),
				).Value(s.syncInterval),
			huh.NewInput().Title("Sheet URL").
				Placeholder("https://...").
				Value(s.sheetURL),
		).Title("Sync"),
		huh.NewGroup(
			huh.NewInput().Title("Your name").
				Description("Recorded on progress updates").
				Value(s.operatorName),
		).Title("Operator"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.saveSettings()
		return s, s.refresh()
	}

	return s, cmd
}

func (s settingsModel) saveSettings() {
	enabled := "0"
	if *s.syncEnabled {
		enabled = "1"
	}
	s.store.SetSetting(store.SettingSyncEnabled, enabled)
	s.store.SetSetting(store.SettingSyncInterval, *s.syncInterval)
	s.store.SetSetting(store.SettingSheetURL, *s.sheetURL)
	s.store.SetSetting(store.SettingOperatorName, *s.operatorName)
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings, s to sync now")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(settingLabel(setting.Key))
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func settingLabel(k string) string {
	switch k {
	case store.SettingSyncEnabled:
		return "Background sync"
	case store.SettingSyncInterval:
		return "Sync interval"
	case store.SettingSheetURL:
		return "Sheet URL"
	case store.SettingOperatorName:
		return "Operator"
	case store.SettingClientID:
		return "Device ID"
	}
	return k
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingSyncEnabled:
		if v == "1" {
			return "enabled"
		}
		return "disabled"
	case store.SettingSyncInterval:
		if v == "0" {
			return "manual only"
		}
		return v + " min"
	case store.SettingSheetURL, store.SettingOperatorName:
		if v == "" {
			return "(not set)"
		}
	}
	return v
}
