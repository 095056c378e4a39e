package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/xiaofanforfabric/headlessmc/internal/core"
	"github.com/xiaofanforfabric/headlessmc/internal/yggdrasil"
)

// LoginState is the stage of the interactive login flow
type LoginState int

const (
	LoginStateAwaitPassword LoginState = iota
	LoginStateDiscovering
	LoginStateAwaitProfile
	LoginStateCommitting
)

// abortWord cancels the flow from either prompt.
const abortWord = "abort"

// LoginArgs are the parsed arguments of the login command.
type LoginArgs struct {
	Username  string
	Password  string
	ServerURL string
}

// ParseLoginArgs parses `<username> [password] [--server <url>]`.
func ParseLoginArgs(args []string, defaultServer string) (*LoginArgs, error) {
	parsed := &LoginArgs{ServerURL: defaultServer}

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--server" || args[i] == "-s":
			if i+1 < len(args) {
				parsed.ServerURL = args[i+1]
				i++
			}
		case parsed.Username == "":
			parsed.Username = args[i]
		case parsed.Password == "":
			parsed.Password = args[i]
		}
	}

	if parsed.Username == "" {
		return nil, errors.New("usage: login <username> [password] [--server <url>]")
	}
	return parsed, nil
}

// LoginModel drives one login flow: optional masked password prompt, profile
// discovery, optional profile selection, then authenticate and commit. All
// flow state lives here so it survives across input turns; every exit path
// navigates back home.
type LoginModel struct {
	width  int
	height int

	state    LoginState
	username string
	password string
	server   string
	profiles []yggdrasil.Profile
	warning  string

	passwordInput textinput.Model
	profileInput  textinput.Model
	spinner       spinner.Model

	client  *yggdrasil.Client
	manager *core.AccountManager
}

// Flow messages
type (
	profilesDiscoveredMsg struct {
		profiles []yggdrasil.Profile
		err      error
	}
	loginCommittedMsg struct {
		account *core.YggdrasilAccount
		err     error
	}
)

// NewLoginModel starts a flow for the given parsed arguments.
func NewLoginModel(args *LoginArgs, manager *core.AccountManager) *LoginModel {
	pw := textinput.New()
	pw.Placeholder = "password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '*'
	pw.Width = 40

	sel := textinput.New()
	sel.Placeholder = "1"
	sel.CharLimit = 3
	sel.Width = 10

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	return &LoginModel{
		state:         LoginStateAwaitPassword,
		username:      args.Username,
		password:      args.Password,
		server:        args.ServerURL,
		passwordInput: pw,
		profileInput:  sel,
		spinner:       s,
		client:        yggdrasil.NewClient(args.ServerURL),
		manager:       manager,
	}
}

// Init implements tea.Model
func (m *LoginModel) Init() tea.Cmd {
	if m.password != "" {
		m.state = LoginStateDiscovering
		return tea.Batch(m.spinner.Tick, m.discoverProfiles())
	}
	return tea.Batch(textinput.Blink, m.passwordInput.Focus())
}

// SetSize updates dimensions
func (m *LoginModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *LoginModel) discoverProfiles() tea.Cmd {
	username, password := m.username, m.password
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		profiles, err := m.client.DiscoverProfiles(ctx, username, password)
		return profilesDiscoveredMsg{profiles: profiles, err: err}
	}
}

// commit authenticates with the selected profile's display name (the server
// expects the profile name once a profile has been chosen) but keeps the
// original login credentials on the stored record.
func (m *LoginModel) commit(profile yggdrasil.Profile) tea.Cmd {
	username, password, server := m.username, m.password, m.server
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		session, err := m.client.Authenticate(ctx, profile.Name, password)
		if err != nil {
			return loginCommittedMsg{err: err}
		}

		log.Info().
			Str("name", session.Name).
			Str("accessToken", yggdrasil.MaskToken(session.AccessToken)).
			Msg("yggdrasil login succeeded")

		account := &core.YggdrasilAccount{
			ServerURL:   server,
			AccessToken: session.AccessToken,
			ClientToken: session.ClientToken,
			UUID:        session.UUID,
			Name:        session.Name,
			Username:    username,
			Password:    password,
		}
		m.manager.AddYggdrasilAccount(account)
		return loginCommittedMsg{account: account}
	}
}

// Update implements tea.Model
func (m *LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, goHome("login aborted", nil)
		case "enter":
			return m.handleEnter()
		}

	case profilesDiscoveredMsg:
		if msg.err != nil {
			return m, goHome("", fmt.Errorf("failed to login: %w", msg.err))
		}
		m.profiles = msg.profiles
		if len(m.profiles) > 1 {
			m.state = LoginStateAwaitProfile
			return m, tea.Batch(textinput.Blink, m.profileInput.Focus())
		}
		m.state = LoginStateCommitting
		return m, tea.Batch(m.spinner.Tick, m.commit(m.profiles[0]))

	case loginCommittedMsg:
		if msg.err != nil {
			return m, goHome("", fmt.Errorf("failed to login: %w", msg.err))
		}
		return m, goHome(fmt.Sprintf("Logged in as %s", msg.account.Name), nil)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Delegate typing to the focused input
	var cmd tea.Cmd
	switch m.state {
	case LoginStateAwaitPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	case LoginStateAwaitProfile:
		m.profileInput, cmd = m.profileInput.Update(msg)
	}
	return m, cmd
}

func (m *LoginModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case LoginStateAwaitPassword:
		entered := m.passwordInput.Value()
		if strings.EqualFold(strings.TrimSpace(entered), abortWord) {
			return m, goHome("login aborted", nil)
		}
		if entered == "" {
			return m, nil
		}
		m.password = entered
		m.state = LoginStateDiscovering
		return m, tea.Batch(m.spinner.Tick, m.discoverProfiles())

	case LoginStateAwaitProfile:
		input := strings.TrimSpace(m.profileInput.Value())
		if strings.EqualFold(input, abortWord) {
			return m, goHome("login aborted", nil)
		}
		selected, warning := selectProfile(input, m.profiles)
		m.warning = warning
		m.state = LoginStateCommitting
		return m, tea.Batch(m.spinner.Tick, m.commit(selected))
	}
	return m, nil
}

// selectProfile resolves a 1-based index entered by the user. Empty input
// picks the default (first) profile; out-of-range or non-numeric input also
// falls back to the default, with a warning to show.
func selectProfile(input string, profiles []yggdrasil.Profile) (yggdrasil.Profile, string) {
	def := profiles[0]
	if input == "" {
		return def, ""
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return def, fmt.Sprintf("invalid input %q, using profile %s", input, def.Name)
	}
	if n < 1 || n > len(profiles) {
		return def, fmt.Sprintf("invalid number %d, using profile %s", n, def.Name)
	}
	return profiles[n-1], ""
}

// goHome is the single exit path of the flow, so the command prompt is never
// left in password-hidden or awaiting-input mode.
func goHome(status string, err error) tea.Cmd {
	return func() tea.Msg {
		return NavigateToHome{Status: status, Err: err}
	}
}

// View implements tea.Model
func (m *LoginModel) View() string {
	doc := ContainerStyle.Width(m.width).Height(m.height)

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Yggdrasil Login"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Server:   %s\n", m.server)
	fmt.Fprintf(&b, "Username: %s\n\n", m.username)

	switch m.state {
	case LoginStateAwaitPassword:
		b.WriteString("Enter your password, or type 'abort' to cancel.\n\n")
		b.WriteString(m.passwordInput.View())
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("[Enter] Submit • [Esc] Cancel"))

	case LoginStateDiscovering:
		fmt.Fprintf(&b, "%s Checking credentials...", m.spinner.View())

	case LoginStateAwaitProfile:
		fmt.Fprintf(&b, "Found %d profiles on the server:\n\n", len(m.profiles))
		for i, p := range m.profiles {
			marker := ""
			if i == 0 {
				marker = SuccessStyle.Render(" [default]")
			}
			fmt.Fprintf(&b, "  %d. %s (%s)%s\n", i+1, p.Name, p.ID, marker)
		}
		fmt.Fprintf(&b, "\nProfile number (1-%d), Enter for default, 'abort' to cancel:\n\n", len(m.profiles))
		b.WriteString(m.profileInput.View())

	case LoginStateCommitting:
		if m.warning != "" {
			b.WriteString(WarningStyle.Render(m.warning))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s Logging in...", m.spinner.View())
	}

	return doc.Render(b.String())
}
