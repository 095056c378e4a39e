package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/xiaofanforfabric/headlessmc/internal/config"
	"github.com/xiaofanforfabric/headlessmc/internal/core"
	"github.com/xiaofanforfabric/headlessmc/internal/launch"
)

// PreflightState is the stage of the launch pre-flight check
type PreflightState int

const (
	PreflightStateValidating PreflightState = iota
	PreflightStateConfirming
	PreflightStateResolving
)

// confirmTimeout bounds the stale-token confirmation prompt. No answer
// within the window counts as declined, never as consent.
const confirmTimeout = 30 * time.Second

// PreflightModel validates the primary Yggdrasil token before launch and, if
// it is stale, asks the operator whether to proceed anyway.
type PreflightModel struct {
	width  int
	height int

	state   PreflightState
	account *core.YggdrasilAccount
	offline bool

	spinner spinner.Model

	cfg     *config.Config
	manager *core.AccountManager
}

type (
	tokenValidatedMsg struct {
		checked bool // false when there was no Yggdrasil account to check
		valid   bool
	}
	accountResolvedMsg struct {
		account *core.LaunchAccount
		err     error
	}
	confirmTimeoutMsg struct{}
)

// NewPreflightModel creates the pre-flight view for one launch attempt.
func NewPreflightModel(cfg *config.Config, manager *core.AccountManager, offline bool) *PreflightModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return &PreflightModel{
		state:   PreflightStateValidating,
		offline: offline,
		spinner: s,
		cfg:     cfg,
		manager: manager,
	}
}

// Init implements tea.Model
func (m *PreflightModel) Init() tea.Cmd {
	m.account = m.manager.PrimaryYggdrasilAccount()
	return tea.Batch(m.spinner.Tick, m.validateToken())
}

// SetSize updates dimensions
func (m *PreflightModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *PreflightModel) validateToken() tea.Cmd {
	account := m.account
	return func() tea.Msg {
		if account == nil {
			return tokenValidatedMsg{checked: false}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return tokenValidatedMsg{checked: true, valid: m.manager.ValidateYggdrasilToken(ctx, account)}
	}
}

func (m *PreflightModel) resolveAccount() tea.Cmd {
	cfg := *m.cfg
	if m.offline {
		cfg.Offline = true
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		account, err := launch.ResolveAccount(ctx, &cfg, m.manager)
		return accountResolvedMsg{account: account, err: err}
	}
}

// Update implements tea.Model
func (m *PreflightModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state != PreflightStateConfirming {
			break
		}
		switch msg.String() {
		case "y", "Y":
			log.Warn().Str("name", m.account.Name).Msg("user chose to launch with an invalid token")
			m.state = PreflightStateResolving
			return m, tea.Batch(m.spinner.Tick, m.resolveAccount())
		case "n", "N", "esc", "ctrl+c":
			return m, goHome("", fmt.Errorf("token invalid, launch cancelled; use the login command to re-login"))
		}

	case tokenValidatedMsg:
		if msg.checked && !msg.valid {
			m.state = PreflightStateConfirming
			return m, tea.Tick(confirmTimeout, func(time.Time) tea.Msg { return confirmTimeoutMsg{} })
		}
		m.state = PreflightStateResolving
		return m, tea.Batch(m.spinner.Tick, m.resolveAccount())

	case confirmTimeoutMsg:
		// A stale tick after the operator already answered is ignored.
		if m.state == PreflightStateConfirming {
			return m, goHome("", fmt.Errorf("timed out waiting for confirmation, launch cancelled"))
		}

	case accountResolvedMsg:
		if msg.err != nil {
			return m, goHome("", msg.err)
		}
		return m, func() tea.Msg { return LaunchReady{Account: msg.account} }

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m *PreflightModel) View() string {
	doc := ContainerStyle.Width(m.width).Height(m.height)

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Launch"))
	b.WriteString("\n\n")

	switch m.state {
	case PreflightStateValidating:
		fmt.Fprintf(&b, "%s Checking account status...", m.spinner.View())

	case PreflightStateConfirming:
		b.WriteString(ErrorStyle.Render("Token validation failed"))
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "Account: %s\nServer:  %s\n\n", m.account.Name, m.account.ServerURL)
		b.WriteString(WarningStyle.Render("Launching with an invalid token will cause an 'Invalid session' error in game."))
		b.WriteString("\n\nContinue to launch anyway? [y/n]\n\n")
		b.WriteString(HelpStyle.Render(fmt.Sprintf("No answer within %s cancels the launch.", confirmTimeout)))

	case PreflightStateResolving:
		fmt.Fprintf(&b, "%s Resolving launch account...", m.spinner.View())
	}

	return doc.Render(b.String())
}
