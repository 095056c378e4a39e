// Package ui contains all TUI view components.
// Each view is a Bubbletea model that can be composed into the main app.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xiaofanforfabric/headlessmc/internal/core"
)

// HomeModel shows the account table and the command prompt.
type HomeModel struct {
	width  int
	height int

	input   textinput.Model
	status  string
	lastErr error

	manager *core.AccountManager
}

// accountRow is one line of the account table.
type accountRow struct {
	id      int
	kind    string
	name    string
	primary bool

	oauth     *core.OAuthAccount
	yggdrasil *core.YggdrasilAccount
}

// NewHomeModel creates the home view.
func NewHomeModel(manager *core.AccountManager) *HomeModel {
	ti := textinput.New()
	ti.Placeholder = "login <username> [password] [--server <url>]"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Width = 60

	return &HomeModel{
		input:   ti,
		manager: manager,
	}
}

// Init implements tea.Model
func (m *HomeModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.input.Focus())
}

// SetSize updates dimensions
func (m *HomeModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetStatus sets the status line shown under the table.
func (m *HomeModel) SetStatus(status string, err error) {
	m.status = status
	m.lastErr = err
}

// rows builds the combined table, OAuth accounts first, 1-based ids.
func (m *HomeModel) rows() []accountRow {
	var rows []accountRow
	id := 1
	for i, acc := range m.manager.Accounts() {
		rows = append(rows, accountRow{id: id, kind: "MSA", name: acc.Name, primary: i == 0, oauth: acc})
		id++
	}
	for i, acc := range m.manager.YggdrasilAccounts() {
		rows = append(rows, accountRow{id: id, kind: "Yggdrasil", name: acc.Name, primary: i == 0, yggdrasil: acc})
		id++
	}
	return rows
}

// Update implements tea.Model
func (m *HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m, m.dispatch(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// dispatch runs one command line from the prompt. Command errors surface on
// the status line, not as process exits.
func (m *HomeModel) dispatch(line string) tea.Cmd {
	m.status = ""
	m.lastErr = nil

	words := strings.Fields(line)
	switch strings.ToLower(words[0]) {
	case "login":
		return func() tea.Msg { return NavigateToLogin{Args: words[1:]} }

	case "account":
		if len(words) < 2 {
			// Bare listing: the table is always on screen, just confirm.
			m.status = fmt.Sprintf("%d account(s)", len(m.rows()))
			return nil
		}
		return m.selectAccount(words[1])

	case "remove":
		if len(words) < 2 {
			m.lastErr = fmt.Errorf("usage: remove <id>")
			return nil
		}
		return m.removeAccount(words[1])

	case "launch":
		offline := len(words) > 1 && words[1] == "-offline"
		return func() tea.Msg { return NavigateToLaunch{Offline: offline} }

	case "help":
		m.status = "commands: login, account [id], remove <id>, launch [-offline], quit"
		return nil

	case "quit", "exit":
		return tea.Quit

	default:
		m.lastErr = fmt.Errorf("unknown command %q, try 'help'", words[0])
		return nil
	}
}

// selectAccount promotes the account with the given table id to primary of
// its kind, by re-adding it.
func (m *HomeModel) selectAccount(arg string) tea.Cmd {
	row, err := m.findRow(arg)
	if err != nil {
		m.lastErr = err
		return nil
	}

	if row.oauth != nil {
		m.manager.AddAccount(row.oauth)
	} else {
		m.manager.AddYggdrasilAccount(row.yggdrasil)
	}
	m.status = fmt.Sprintf("Account %s selected", row.name)
	return nil
}

func (m *HomeModel) removeAccount(arg string) tea.Cmd {
	row, err := m.findRow(arg)
	if err != nil {
		m.lastErr = err
		return nil
	}

	if row.oauth != nil {
		m.manager.RemoveAccount(row.oauth)
	} else {
		m.manager.RemoveYggdrasilAccount(row.yggdrasil)
	}
	m.status = fmt.Sprintf("Account %s removed", row.name)
	return nil
}

func (m *HomeModel) findRow(arg string) (*accountRow, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q", arg)
	}
	for _, row := range m.rows() {
		if row.id == id {
			return &row, nil
		}
	}
	return nil, fmt.Errorf("no account with id %d", id)
}

// View implements tea.Model
func (m *HomeModel) View() string {
	doc := ContainerStyle.Width(m.width).Height(m.height)

	var b strings.Builder
	b.WriteString(TitleStyle.Render("HeadlessMC Accounts"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTable())
	b.WriteString("\n")

	switch {
	case m.lastErr != nil:
		b.WriteString(ErrorStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(SuccessStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("login <user> [pass] [--server <url>] • account <id> • remove <id> • launch [-offline] • quit"))

	return doc.Render(b.String())
}

func (m *HomeModel) renderTable() string {
	rows := m.rows()
	if len(rows) == 0 {
		return HelpStyle.Render("No accounts. Use the login command to add one.")
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", header.Render(fmt.Sprintf("  %-4s %-10s %-20s %s", "id", "type", "name", "")))
	for _, row := range rows {
		marker := ""
		if row.primary {
			marker = SuccessStyle.Render("primary")
		}
		fmt.Fprintf(&b, "  %-4d %-10s %-20s %s\n", row.id, row.kind, row.name, marker)
	}
	return b.String()
}
