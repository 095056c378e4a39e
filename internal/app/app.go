// Package app contains the main Bubbletea application model.
// This is the central hub that manages app state and delegates to child views.
package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/xiaofanforfabric/headlessmc/internal/config"
	"github.com/xiaofanforfabric/headlessmc/internal/core"
	"github.com/xiaofanforfabric/headlessmc/internal/ui"
)

// State represents the current view/screen of the application
type State int

const (
	StateHome State = iota
	StateLogin
	StateLaunch
)

// Model is the main application model
type Model struct {
	state  State
	width  int
	height int

	home      *ui.HomeModel
	login     *ui.LoginModel
	preflight *ui.PreflightModel

	cfg     *config.Config
	manager *core.AccountManager
}

// New creates the app model
func New(cfg *config.Config, manager *core.AccountManager) *Model {
	return &Model{
		state:   StateHome,
		home:    ui.NewHomeModel(manager),
		cfg:     cfg,
		manager: manager,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.home.Init()
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.home.SetSize(msg.Width, msg.Height)
		if m.login != nil {
			m.login.SetSize(msg.Width, msg.Height)
		}
		if m.preflight != nil {
			m.preflight.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case ui.NavigateToHome:
		m.state = StateHome
		m.login = nil
		m.preflight = nil
		m.home.SetStatus(msg.Status, msg.Err)
		return m, m.home.Init()

	case ui.NavigateToLogin:
		args, err := ui.ParseLoginArgs(msg.Args, m.cfg.AuthServerURL)
		if err != nil {
			m.home.SetStatus("", err)
			return m, nil
		}
		m.state = StateLogin
		m.login = ui.NewLoginModel(args, m.manager)
		m.login.SetSize(m.width, m.height)
		return m, m.login.Init()

	case ui.NavigateToLaunch:
		m.state = StateLaunch
		m.preflight = ui.NewPreflightModel(m.cfg, m.manager, msg.Offline)
		m.preflight.SetSize(m.width, m.height)
		return m, m.preflight.Init()

	case ui.LaunchReady:
		// Handing the account to the process factory is outside this
		// subsystem; report what the game would be started with.
		log.Info().
			Str("type", string(msg.Account.Type)).
			Str("name", msg.Account.Name).
			Str("uuid", msg.Account.UUID).
			Msg("launch account resolved")
		m.state = StateHome
		m.preflight = nil
		m.home.SetStatus(fmt.Sprintf("Ready to launch as %s (%s)", msg.Account.Name, msg.Account.Type), nil)
		return m, m.home.Init()
	}

	// Delegate to the active view
	switch m.state {
	case StateLogin:
		if m.login != nil {
			_, cmd := m.login.Update(msg)
			return m, cmd
		}
	case StateLaunch:
		if m.preflight != nil {
			_, cmd := m.preflight.Update(msg)
			return m, cmd
		}
	}

	_, cmd := m.home.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m *Model) View() string {
	switch m.state {
	case StateLogin:
		if m.login != nil {
			return m.login.View()
		}
	case StateLaunch:
		if m.preflight != nil {
			return m.preflight.View()
		}
	}
	return m.home.View()
}
