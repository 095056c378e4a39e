package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaofanforfabric/headlessmc/internal/config"
	"github.com/xiaofanforfabric/headlessmc/internal/yggdrasil"
)

// fakeOAuthService implements OAuthService for tests.
type fakeOAuthService struct {
	loginAccount *OAuthAccount
	loginErr     error
	refreshed    *OAuthAccount
	refreshErr   error
}

func (f *fakeOAuthService) Login(ctx context.Context, email, password string) (*OAuthAccount, error) {
	return f.loginAccount, f.loginErr
}

func (f *fakeOAuthService) Refresh(ctx context.Context, account *OAuthAccount) (*OAuthAccount, error) {
	return f.refreshed, f.refreshErr
}

func newTestManager(t *testing.T) (*AccountManager, string) {
	t.Helper()
	dir := t.TempDir()
	return NewAccountManager(NewAccountStore(dir, true), nil), dir
}

func TestAccountManager_ReplaceByName(t *testing.T) {
	mgr, _ := newTestManager(t)

	mgr.AddYggdrasilAccount(&YggdrasilAccount{ServerURL: "https://a", AccessToken: "t1", UUID: "u1", Name: "Alice"})
	mgr.AddYggdrasilAccount(&YggdrasilAccount{ServerURL: "https://b", AccessToken: "t2", UUID: "u2", Name: "Bob"})
	mgr.AddYggdrasilAccount(&YggdrasilAccount{ServerURL: "https://c", AccessToken: "t3", UUID: "u3", Name: "Alice"})

	accounts := mgr.YggdrasilAccounts()
	require.Len(t, accounts, 2)
	require.Equal(t, "Alice", accounts[0].Name)
	require.Equal(t, "t3", accounts[0].AccessToken, "replacement keeps the new object's fields")
	require.Equal(t, "Bob", accounts[1].Name)
}

func TestAccountManager_OrderIsReverseInsertion(t *testing.T) {
	mgr, _ := newTestManager(t)

	for _, name := range []string{"A", "B", "C", "D"} {
		mgr.AddAccount(&OAuthAccount{Name: name, UUID: "u-" + name, AccessToken: "t-" + name})
	}

	var names []string
	for _, acc := range mgr.Accounts() {
		names = append(names, acc.Name)
	}
	require.Equal(t, []string{"D", "C", "B", "A"}, names)
	require.Equal(t, "D", mgr.PrimaryAccount().Name)
}

func TestAccountManager_RemoveIsIdempotent(t *testing.T) {
	mgr, dir := newTestManager(t)

	acc := &OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "t1"}
	mgr.AddAccount(acc)
	mgr.RemoveAccount(acc)
	require.Nil(t, mgr.PrimaryAccount())

	// Second removal is a no-op but still rewrites the store.
	require.NoError(t, os.Remove(filepath.Join(dir, "accounts.json")))
	mgr.RemoveAccount(acc)

	_, err := os.Stat(filepath.Join(dir, "accounts.json"))
	require.NoError(t, err)
}

func TestAccountManager_PrimaryOfEmptyLists(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.Nil(t, mgr.PrimaryAccount())
	require.Nil(t, mgr.PrimaryYggdrasilAccount())
}

func TestAccountManager_MutationsPersist(t *testing.T) {
	dir := t.TempDir()
	store := NewAccountStore(dir, true)
	mgr := NewAccountManager(store, nil)

	mgr.AddAccount(&OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "t1"})
	mgr.AddYggdrasilAccount(&YggdrasilAccount{ServerURL: "https://s", AccessToken: "t2", UUID: "u2", Name: "Alice"})

	reloaded := NewAccountManager(NewAccountStore(dir, true), nil)
	require.NoError(t, reloaded.Load(context.Background(), config.DefaultConfig()))
	require.Equal(t, "Steve", reloaded.PrimaryAccount().Name)
	require.Equal(t, "Alice", reloaded.PrimaryYggdrasilAccount().Name)
}

func TestAccountManager_RefreshAccount(t *testing.T) {
	dir := t.TempDir()
	oauth := &fakeOAuthService{
		refreshed: &OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "fresh"},
	}
	mgr := NewAccountManager(NewAccountStore(dir, true), oauth)

	old := &OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "stale"}
	mgr.AddAccount(old)
	mgr.AddAccount(&OAuthAccount{Name: "Alex", UUID: "u2", AccessToken: "t2"})

	refreshed, err := mgr.RefreshAccount(context.Background(), old, config.DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, "fresh", refreshed.AccessToken)

	// Refreshed account replaced the old one and was promoted to primary.
	accounts := mgr.Accounts()
	require.Len(t, accounts, 2)
	require.Equal(t, "Steve", accounts[0].Name)
	require.Equal(t, "fresh", accounts[0].AccessToken)
}

func TestAccountManager_RefreshFailure(t *testing.T) {
	t.Run("account kept by default", func(t *testing.T) {
		mgr := NewAccountManager(NewAccountStore(t.TempDir(), true), &fakeOAuthService{refreshErr: errors.New("expired")})
		acc := &OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "t1"}
		mgr.AddAccount(acc)

		_, err := mgr.RefreshAccount(context.Background(), acc, config.DefaultConfig())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		require.NotNil(t, mgr.PrimaryAccount())
	})

	t.Run("account dropped when configured", func(t *testing.T) {
		mgr := NewAccountManager(NewAccountStore(t.TempDir(), true), &fakeOAuthService{refreshErr: errors.New("expired")})
		acc := &OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "t1"}
		mgr.AddAccount(acc)

		cfg := config.DefaultConfig()
		cfg.RefreshFailureDelete = true
		_, err := mgr.RefreshAccount(context.Background(), acc, cfg)
		require.Error(t, err)
		require.Nil(t, mgr.PrimaryAccount())
	})
}

func TestAccountManager_RefreshYggdrasilAccount(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/authserver/refresh", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":     "fresh",
			"clientToken":     "client",
			"selectedProfile": yggdrasil.Profile{ID: "u1", Name: "Alice"},
		})
	}))
	defer ts.Close()

	mgr, _ := newTestManager(t)
	mgr.SetClientFactory(func(string) *yggdrasil.Client { return yggdrasil.NewClient(ts.URL) })

	old := &YggdrasilAccount{
		ServerURL: "https://s", AccessToken: "stale", ClientToken: "client",
		UUID: "u1", Name: "Alice", Username: "alice@example.com", Password: "pw",
	}
	mgr.AddYggdrasilAccount(old)

	refreshed, err := mgr.RefreshYggdrasilAccount(context.Background(), old)
	require.NoError(t, err)
	require.Equal(t, "fresh", refreshed.AccessToken)
	require.Equal(t, "alice@example.com", refreshed.Username, "login credentials ride along")
	require.Equal(t, "pw", refreshed.Password)

	accounts := mgr.YggdrasilAccounts()
	require.Len(t, accounts, 1)
	require.Equal(t, "fresh", accounts[0].AccessToken)
}

func TestAccountManager_ValidateYggdrasilToken(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		mgr, _ := newTestManager(t)
		mgr.SetClientFactory(func(string) *yggdrasil.Client { return yggdrasil.NewClient(ts.URL) })
		require.True(t, mgr.ValidateYggdrasilToken(context.Background(), &YggdrasilAccount{
			ServerURL: "https://s", AccessToken: "t", UUID: "u", Name: "n",
		}))
	})

	t.Run("unreachable server is invalid, not an error", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		require.False(t, mgr.ValidateYggdrasilToken(context.Background(), &YggdrasilAccount{
			ServerURL: "http://127.0.0.1:1", AccessToken: "t", UUID: "u", Name: "n",
		}))
	})
}

func TestAccountManager_LoadWithCredentialLogin(t *testing.T) {
	t.Run("success adds the account", func(t *testing.T) {
		oauth := &fakeOAuthService{loginAccount: &OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "t1"}}
		mgr := NewAccountManager(NewAccountStore(t.TempDir(), true), oauth)

		cfg := config.DefaultConfig()
		cfg.Email = "steve@example.com"
		cfg.Password = "pw"
		require.NoError(t, mgr.Load(context.Background(), cfg))
		require.Equal(t, "Steve", mgr.PrimaryAccount().Name)
	})

	t.Run("failure is fatal", func(t *testing.T) {
		oauth := &fakeOAuthService{loginErr: errors.New("bad credentials")}
		mgr := NewAccountManager(NewAccountStore(t.TempDir(), true), oauth)

		cfg := config.DefaultConfig()
		cfg.Email = "steve@example.com"
		cfg.Password = "pw"
		require.Error(t, mgr.Load(context.Background(), cfg))
	})
}

func TestAccountManager_LoadRefreshOnLaunchFailureIsLogged(t *testing.T) {
	dir := t.TempDir()
	seed := NewAccountManager(NewAccountStore(dir, true), nil)
	seed.AddAccount(&OAuthAccount{Name: "Steve", UUID: "u1", AccessToken: "t1"})

	oauth := &fakeOAuthService{refreshErr: errors.New("expired")}
	mgr := NewAccountManager(NewAccountStore(dir, true), oauth)

	cfg := config.DefaultConfig()
	cfg.RefreshOnLaunch = true
	require.NoError(t, mgr.Load(context.Background(), cfg), "refresh failures at load are not fatal")
	require.NotNil(t, mgr.PrimaryAccount())
}

func TestAccountManager_OfflineAccount(t *testing.T) {
	mgr, _ := newTestManager(t)

	t.Run("defaults", func(t *testing.T) {
		acc := mgr.OfflineAccount(config.DefaultConfig())
		require.Equal(t, AccountTypeMSA, acc.Type)
		require.Equal(t, "Offline", acc.Name)
		require.Equal(t, "22689332a7fd41919600b0fe1135ee34", acc.UUID)
	})

	t.Run("configured overrides", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.OfflineType = "offline"
		cfg.OfflineUsername = "Herobrine"
		cfg.OfflineUUID = "custom-uuid"
		cfg.OfflineToken = "token"
		cfg.Xuid = "xuid"

		acc := mgr.OfflineAccount(cfg)
		require.Equal(t, AccountTypeOffline, acc.Type)
		require.Equal(t, "Herobrine", acc.Name)
		require.Equal(t, "custom-uuid", acc.UUID)
		require.Equal(t, "token", acc.AccessToken)
		require.Equal(t, "xuid", acc.Xuid)
	})
}

// Full login scenario: authenticate against a stub server, commit the
// account, verify it is primary and persisted with the yggdrasil tag.
func TestAccountManager_LoginEndToEnd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken": "token-e2e",
			"availableProfiles": []yggdrasil.Profile{
				{ID: "11111111-1111-1111-1111-111111111111", Name: "Alice"},
			},
		})
	}))
	defer ts.Close()

	dir := t.TempDir()
	mgr := NewAccountManager(NewAccountStore(dir, true), nil)

	session, err := yggdrasil.NewClient(ts.URL).Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)

	mgr.AddYggdrasilAccount(&YggdrasilAccount{
		ServerURL:   ts.URL,
		AccessToken: session.AccessToken,
		ClientToken: session.ClientToken,
		UUID:        session.UUID,
		Name:        session.Name,
		Username:    "alice",
		Password:    "pw",
	})

	primary := mgr.PrimaryYggdrasilAccount()
	require.NotNil(t, primary)
	require.Equal(t, "Alice", primary.Name)

	data, err := os.ReadFile(filepath.Join(dir, "accounts.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"type": "yggdrasil"`)
	require.Contains(t, string(data), `"name": "Alice"`)
	require.Contains(t, string(data), `"username": "alice"`)
}
