package main

import (
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/neubell/llm-meter/internal/config"
	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/credentials"
	"github.com/neubell/llm-meter/internal/meter"
	"github.com/neubell/llm-meter/internal/providers"
	"github.com/neubell/llm-meter/internal/storage"
	"github.com/neubell/llm-meter/internal/tui"
)

func runDashboard(cfg config.Config) error {
	if err := config.EnsureInitialized(); err != nil {
		return err
	}

	store, err := storage.Open(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	watcher, err := config.WatchFile(config.Path())
	if err != nil {
		log.Printf("config watcher: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
	}

	names := lo.Map(providers.All(), func(p core.ProviderAdapter, _ int) string {
		return p.Name()
	})

	model := tui.NewModel(tui.Deps{
		Meter:      meter.New(),
		Store:      store,
		Creds:      credentials.NewStore(credentials.DefaultPath(config.Dir())),
		Config:     cfg,
		ConfigPath: config.Path(),
		Providers:  names,
		Watcher:    watcher,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
