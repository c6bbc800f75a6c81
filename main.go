package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dkeller/fieldops/internal/chat"
	"github.com/dkeller/fieldops/internal/config"
	"github.com/dkeller/fieldops/internal/remote"
	"github.com/dkeller/fieldops/internal/store"
	"github.com/dkeller/fieldops/internal/syncer"
	"github.com/dkeller/fieldops/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return err
		}
	}

	s, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	logger := openLogger(dbPath)
	s.SetLogger(logger)

	// The in-app sheet URL setting overrides the config file.
	sheetURL := s.GetSetting(store.SettingSheetURL, cfg.SheetURL)
	client := remote.New(sheetURL, remote.WithTimeout(cfg.RequestTimeout()))

	engine := syncer.New(s, client, syncer.WithLogger(logger))
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := tui.NewApp(s, engine, chat.New(cfg.ChatProxyURL))
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Pull remote data at startup, then keep syncing on the interval.
	go func() {
		if err := engine.Sync(ctx); err != nil {
			logger.Warn("startup sync failed", "error", err)
		}
		p.Send(tui.ExternalChangeMsg{})
	}()
	go engine.Run(ctx)

	// Pick up writes from other fieldops processes sharing the database.
	watcher := store.NewWatcher(s, func() {
		p.Send(tui.ExternalChangeMsg{})
	}, logger)
	go watcher.Start(ctx)

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// openLogger writes structured logs next to the database. Stderr belongs to
// the terminal UI.
func openLogger(dbPath string) *slog.Logger {
	logPath := filepath.Join(filepath.Dir(dbPath), "fieldops.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	return slog.New(slog.NewTextHandler(f, nil))
}
