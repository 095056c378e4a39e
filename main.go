package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/xiaofanforfabric/headlessmc/internal/app"
	"github.com/xiaofanforfabric/headlessmc/internal/config"
	"github.com/xiaofanforfabric/headlessmc/internal/core"
	"github.com/xiaofanforfabric/headlessmc/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := logging.Setup(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	store := core.NewAccountStore(cfg.DataDir, cfg.StoreAccounts)
	manager := core.NewAccountManager(store, nil)
	if err := manager.Load(context.Background(), cfg); err != nil {
		log.Error().Err(err).Msg("failed to load accounts")
		fmt.Fprintf(os.Stderr, "Error loading accounts: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		app.New(cfg, manager),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
