package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/xiaofanforfabric/headlessmc/internal/config"
	"github.com/xiaofanforfabric/headlessmc/internal/yggdrasil"
)

// offlineUUID is the identity used when offline play has no configured UUID.
const offlineUUID = "22689332a7fd41919600b0fe1135ee34"

// AuthError wraps refresh and load failures with their underlying cause.
type AuthError struct {
	msg   string
	cause error
}

func NewAuthError(msg string, cause error) *AuthError {
	return &AuthError{msg: msg, cause: cause}
}

func (e *AuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *AuthError) Unwrap() error { return e.cause }

// OAuthService is the external Microsoft login collaborator. Its device-code
// internals live outside this module; the manager only consumes the validated
// sessions it returns.
type OAuthService interface {
	Login(ctx context.Context, email, password string) (*OAuthAccount, error)
	Refresh(ctx context.Context, account *OAuthAccount) (*OAuthAccount, error)
}

// ClientFactory builds a Yggdrasil client for an account's server.
type ClientFactory func(serverURL string) *yggdrasil.Client

// AccountManager owns the ordered lists of both account kinds. Index 0 is the
// primary account of its kind. All operations take one lock covering the
// list mutation and the persistence write, so concurrent commands cannot
// interleave into a torn state.
type AccountManager struct {
	mu sync.Mutex

	oauthAccounts     []*OAuthAccount
	yggdrasilAccounts []*YggdrasilAccount

	store     *AccountStore
	oauth     OAuthService
	newClient ClientFactory
}

// NewAccountManager creates a manager over the given store. oauth may be nil
// when no Microsoft collaborator is wired in.
func NewAccountManager(store *AccountStore, oauth OAuthService) *AccountManager {
	return &AccountManager{
		store:     store,
		oauth:     oauth,
		newClient: yggdrasil.NewClient,
	}
}

// SetClientFactory replaces how per-server Yggdrasil clients are built.
// Used by tests to point validation at a stub server.
func (m *AccountManager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newClient = f
}

// Load replaces the in-memory lists with the stored ones, then optionally
// performs a startup credential login (fatal on failure) and a refresh of the
// primary OAuth account (logged on failure).
func (m *AccountManager) Load(ctx context.Context, cfg *config.Config) error {
	result, err := m.store.Load()
	if err != nil {
		return NewAuthError("loading accounts", err)
	}

	m.mu.Lock()
	m.oauthAccounts = result.OAuthAccounts
	m.yggdrasilAccounts = result.YggdrasilAccounts
	m.mu.Unlock()

	if cfg.Email != "" && cfg.Password != "" {
		if m.oauth == nil {
			return NewAuthError("email/password configured but no OAuth service available", nil)
		}
		log.Info().Msg("logging in with configured email and password")
		account, err := m.oauth.Login(ctx, cfg.Email, cfg.Password)
		if err != nil {
			return NewAuthError("credential login failed", err)
		}
		m.AddAccount(account)
	}

	if cfg.RefreshOnLaunch {
		if primary := m.PrimaryAccount(); primary != nil {
			if _, err := m.RefreshAccount(ctx, primary, cfg); err != nil {
				log.Error().Err(err).Str("name", primary.Name).Msg("failed to refresh account")
			}
		}
	}
	return nil
}

// AddAccount inserts the account at the front, replacing any existing entry
// with the same name.
func (m *AccountManager) AddAccount(account *OAuthAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.oauthAccounts = removeOAuthByName(m.oauthAccounts, account.Name)
	m.oauthAccounts = append([]*OAuthAccount{account}, m.oauthAccounts...)
	m.save()
}

// AddYggdrasilAccount inserts the account at the front. An existing entry
// with the same name is overwritten, not merged.
func (m *AccountManager) AddYggdrasilAccount(account *YggdrasilAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if containsYggdrasilName(m.yggdrasilAccounts, account.Name) {
		log.Info().Str("name", account.Name).Msg("overwriting existing yggdrasil account")
	}
	m.yggdrasilAccounts = removeYggdrasilByName(m.yggdrasilAccounts, account.Name)
	m.yggdrasilAccounts = append([]*YggdrasilAccount{account}, m.yggdrasilAccounts...)
	m.save()
	log.Info().Str("name", account.Name).Str("server", account.ServerURL).Msg("yggdrasil account saved")
}

// RemoveAccount removes any account with the same name. Removing a missing
// account is a no-op that still triggers a persistence write.
func (m *AccountManager) RemoveAccount(account *OAuthAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.oauthAccounts = removeOAuthByName(m.oauthAccounts, account.Name)
	m.save()
}

// RemoveYggdrasilAccount removes any account with the same name.
func (m *AccountManager) RemoveYggdrasilAccount(account *YggdrasilAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.yggdrasilAccounts = removeYggdrasilByName(m.yggdrasilAccounts, account.Name)
	m.save()
}

// PrimaryAccount returns the primary OAuth account, or nil.
func (m *AccountManager) PrimaryAccount() *OAuthAccount {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.oauthAccounts) == 0 {
		return nil
	}
	return m.oauthAccounts[0]
}

// PrimaryYggdrasilAccount returns the primary Yggdrasil account, or nil.
func (m *AccountManager) PrimaryYggdrasilAccount() *YggdrasilAccount {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.yggdrasilAccounts) == 0 {
		return nil
	}
	return m.yggdrasilAccounts[0]
}

// Accounts returns a snapshot of the OAuth list.
func (m *AccountManager) Accounts() []*OAuthAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*OAuthAccount(nil), m.oauthAccounts...)
}

// YggdrasilAccounts returns a snapshot of the Yggdrasil list.
func (m *AccountManager) YggdrasilAccounts() []*YggdrasilAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*YggdrasilAccount(nil), m.yggdrasilAccounts...)
}

// RefreshAccount refreshes an OAuth account through the external service. On
// success the refreshed account replaces the old one and becomes primary. On
// failure the account is dropped if so configured, and the cause is wrapped
// in an AuthError.
func (m *AccountManager) RefreshAccount(ctx context.Context, account *OAuthAccount, cfg *config.Config) (*OAuthAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.oauth == nil {
		return nil, NewAuthError("no OAuth service available", nil)
	}

	log.Debug().Str("name", account.Name).Msg("refreshing account")
	refreshed, err := m.oauth.Refresh(ctx, account)
	if err != nil {
		if cfg != nil && cfg.RefreshFailureDelete {
			m.oauthAccounts = removeOAuthByName(m.oauthAccounts, account.Name)
			m.save()
		}
		return nil, NewAuthError("refreshing account "+account.Name, err)
	}

	m.oauthAccounts = removeOAuthByName(m.oauthAccounts, account.Name)
	m.oauthAccounts = removeOAuthByName(m.oauthAccounts, refreshed.Name)
	m.oauthAccounts = append([]*OAuthAccount{refreshed}, m.oauthAccounts...)
	m.save()
	return refreshed, nil
}

// RefreshYggdrasilAccount refreshes the account's token against its own
// server. The stored login credentials ride along onto the replacement.
func (m *AccountManager) RefreshYggdrasilAccount(ctx context.Context, account *YggdrasilAccount) (*YggdrasilAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client := m.newClient(account.ServerURL)
	session, err := client.Refresh(ctx, account.AccessToken, account.ClientToken)
	if err != nil {
		return nil, NewAuthError("refreshing yggdrasil account "+account.Name, err)
	}

	refreshed := &YggdrasilAccount{
		ServerURL:   account.ServerURL,
		AccessToken: session.AccessToken,
		ClientToken: session.ClientToken,
		UUID:        session.UUID,
		Name:        session.Name,
		Username:    account.Username,
		Password:    account.Password,
	}
	m.yggdrasilAccounts = removeYggdrasilByName(m.yggdrasilAccounts, account.Name)
	m.yggdrasilAccounts = removeYggdrasilByName(m.yggdrasilAccounts, refreshed.Name)
	m.yggdrasilAccounts = append([]*YggdrasilAccount{refreshed}, m.yggdrasilAccounts...)
	m.save()
	return refreshed, nil
}

// ValidateYggdrasilToken reports whether the account's token is still valid.
// It never fails: every failure mode collapses to false.
func (m *AccountManager) ValidateYggdrasilToken(ctx context.Context, account *YggdrasilAccount) bool {
	m.mu.Lock()
	newClient := m.newClient
	m.mu.Unlock()

	log.Info().
		Str("name", account.Name).
		Str("server", account.ServerURL).
		Str("accessToken", yggdrasil.MaskToken(account.AccessToken)).
		Msg("validating yggdrasil token")

	valid := newClient(account.ServerURL).Validate(ctx, account.AccessToken, account.ClientToken)
	if !valid {
		log.Warn().Str("name", account.Name).Msg("yggdrasil token is invalid or expired")
	}
	return valid
}

// OfflineAccount builds a synthetic identity from configured defaults.
func (m *AccountManager) OfflineAccount(cfg *config.Config) *LaunchAccount {
	account := &LaunchAccount{
		Type:        AccountTypeMSA,
		Name:        "Offline",
		UUID:        offlineUUID,
		AccessToken: cfg.OfflineToken,
		Xuid:        cfg.Xuid,
	}
	if cfg.OfflineType != "" {
		account.Type = AccountType(cfg.OfflineType)
	}
	if cfg.OfflineUsername != "" {
		account.Name = cfg.OfflineUsername
	}
	if cfg.OfflineUUID != "" {
		account.UUID = cfg.OfflineUUID
	}
	return account
}

// save runs under m.mu. Persistence errors are logged, not propagated: the
// in-memory mutation already succeeded and should not be lost over a
// transient disk error.
func (m *AccountManager) save() {
	if err := m.store.Save(m.oauthAccounts, m.yggdrasilAccounts); err != nil {
		log.Error().Err(err).Msg("failed to persist accounts")
	}
}

// Account identity is by name, case-sensitive.

func removeOAuthByName(list []*OAuthAccount, name string) []*OAuthAccount {
	out := list[:0]
	for _, a := range list {
		if a.Name != name {
			out = append(out, a)
		}
	}
	return out
}

func removeYggdrasilByName(list []*YggdrasilAccount, name string) []*YggdrasilAccount {
	out := list[:0]
	for _, a := range list {
		if a.Name != name {
			out = append(out, a)
		}
	}
	return out
}

func containsYggdrasilName(list []*YggdrasilAccount, name string) bool {
	for _, a := range list {
		if a.Name == name {
			return true
		}
	}
	return false
}
