package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/xiaofanforfabric/headlessmc/internal/config"
	"github.com/xiaofanforfabric/headlessmc/internal/core"
	"github.com/xiaofanforfabric/headlessmc/internal/yggdrasil"
)

func newPreflight(t *testing.T, status int) (*PreflightModel, *core.AccountManager) {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)

	mgr := core.NewAccountManager(core.NewAccountStore(t.TempDir(), true), nil)
	mgr.SetClientFactory(func(string) *yggdrasil.Client { return yggdrasil.NewClient(ts.URL) })
	mgr.AddYggdrasilAccount(&core.YggdrasilAccount{
		ServerURL: "https://s", AccessToken: "token", UUID: "u1", Name: "Alice",
	})

	cfg := config.DefaultConfig()
	return NewPreflightModel(cfg, mgr, false), mgr
}

func TestPreflightModel_ValidTokenProceedsToResolve(t *testing.T) {
	m, _ := newPreflight(t, http.StatusNoContent)
	m.Init()

	msg := m.validateToken()().(tokenValidatedMsg)
	require.True(t, msg.checked)
	require.True(t, msg.valid)

	m.Update(msg)
	require.Equal(t, PreflightStateResolving, m.state)
}

func TestPreflightModel_InvalidTokenAsksForConfirmation(t *testing.T) {
	m, _ := newPreflight(t, http.StatusForbidden)
	m.Init()

	msg := m.validateToken()().(tokenValidatedMsg)
	require.False(t, msg.valid)

	m.Update(msg)
	require.Equal(t, PreflightStateConfirming, m.state)
}

func TestPreflightModel_DeclineCancelsLaunch(t *testing.T) {
	m, mgr := newPreflight(t, http.StatusForbidden)
	m.Init()
	m.Update(m.validateToken()())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	require.NotNil(t, cmd)
	home, ok := cmd().(NavigateToHome)
	require.True(t, ok)
	require.Error(t, home.Err, "declining must abort with an explicit error")

	// The account list is untouched by a declined launch.
	require.Len(t, mgr.YggdrasilAccounts(), 1)
}

func TestPreflightModel_ConfirmProceeds(t *testing.T) {
	m, _ := newPreflight(t, http.StatusForbidden)
	m.Init()
	m.Update(m.validateToken()())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	require.Equal(t, PreflightStateResolving, m.state)
	require.NotNil(t, cmd)
}

func TestPreflightModel_TimeoutCountsAsDeclined(t *testing.T) {
	m, _ := newPreflight(t, http.StatusForbidden)
	m.Init()
	m.Update(m.validateToken()())
	require.Equal(t, PreflightStateConfirming, m.state)

	_, cmd := m.Update(confirmTimeoutMsg{})
	require.NotNil(t, cmd)
	home, ok := cmd().(NavigateToHome)
	require.True(t, ok)
	require.Error(t, home.Err)
}

func TestPreflightModel_StaleTimeoutIgnoredAfterAnswer(t *testing.T) {
	m, _ := newPreflight(t, http.StatusForbidden)
	m.Init()
	m.Update(m.validateToken()())
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	_, cmd := m.Update(confirmTimeoutMsg{})
	require.Nil(t, cmd, "a timeout tick after the operator answered must be ignored")
}

func TestPreflightModel_NoYggdrasilAccountSkipsValidation(t *testing.T) {
	mgr := core.NewAccountManager(core.NewAccountStore(t.TempDir(), true), nil)
	m := NewPreflightModel(config.DefaultConfig(), mgr, false)
	m.Init()

	msg := m.validateToken()().(tokenValidatedMsg)
	require.False(t, msg.checked)

	m.Update(msg)
	require.Equal(t, PreflightStateResolving, m.state)
}

func TestPreflightModel_ResolveReportsLaunchAccount(t *testing.T) {
	m, _ := newPreflight(t, http.StatusNoContent)
	m.Init()
	m.Update(m.validateToken()())

	resolved := m.resolveAccount()().(accountResolvedMsg)
	require.NoError(t, resolved.err)
	require.Equal(t, core.AccountTypeLegacy, resolved.account.Type)
	require.Equal(t, "Alice", resolved.account.Name)

	_, cmd := m.Update(resolved)
	ready, ok := cmd().(LaunchReady)
	require.True(t, ok)
	require.Equal(t, "Alice", ready.Account.Name)
}

func TestPreflightModel_OfflineFlagPermitsOfflineAccount(t *testing.T) {
	mgr := core.NewAccountManager(core.NewAccountStore(t.TempDir(), true), nil)
	m := NewPreflightModel(config.DefaultConfig(), mgr, true)
	m.Init()

	resolved := m.resolveAccount()().(accountResolvedMsg)
	require.NoError(t, resolved.err)
	require.Equal(t, "Offline", resolved.account.Name)
}
