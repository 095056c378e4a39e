// Package launch decides which account the game is started with.
package launch

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xiaofanforfabric/headlessmc/internal/config"
	"github.com/xiaofanforfabric/headlessmc/internal/core"
)

// ErrNoAccount means no usable account exists and offline play is not
// permitted.
var ErrNoAccount = errors.New("you can't play the game without an account, use the login command")

// ResolveAccount picks the account to launch with, in priority order:
// primary OAuth account (refreshed when configured), primary Yggdrasil
// account, offline identity when permitted.
//
// The Yggdrasil token is expected to have been validated (and confirmed by
// the operator if stale) before this is called.
func ResolveAccount(ctx context.Context, cfg *config.Config, mgr *core.AccountManager) (*core.LaunchAccount, error) {
	if account := mgr.PrimaryAccount(); account != nil {
		if cfg.RefreshOnGameLaunch {
			refreshed, err := mgr.RefreshAccount(ctx, account, cfg)
			if err != nil {
				if cfg.FailLaunchOnRefreshFailure {
					return nil, err
				}
				// Stale session is still worth a try.
				log.Warn().Err(err).Str("name", account.Name).Msg("launching with unrefreshed session")
			} else {
				account = refreshed
			}
		}
		return &core.LaunchAccount{
			Type:        core.AccountTypeMSA,
			Name:        account.Name,
			UUID:        account.UUID,
			AccessToken: account.AccessToken,
			Xuid:        account.Xuid,
		}, nil
	}

	if account := mgr.PrimaryYggdrasilAccount(); account != nil {
		return yggdrasilLaunchAccount(account)
	}

	if cfg.Offline {
		return mgr.OfflineAccount(cfg), nil
	}

	return nil, ErrNoAccount
}

func yggdrasilLaunchAccount(account *core.YggdrasilAccount) (*core.LaunchAccount, error) {
	if account.UUID == "" {
		return nil, core.NewAuthError("yggdrasil account UUID is missing", nil)
	}
	if account.AccessToken == "" {
		return nil, core.NewAuthError("yggdrasil account access token is missing", nil)
	}
	if account.Name == "" {
		return nil, core.NewAuthError("yggdrasil account name is missing", nil)
	}

	// The game only recognizes the "legacy" user type for these sessions.
	return &core.LaunchAccount{
		Type:        core.AccountTypeLegacy,
		Name:        account.Name,
		UUID:        FormatUUID(account.UUID),
		AccessToken: account.AccessToken,
	}, nil
}

// FormatUUID renders an undashed 32-hex Yggdrasil UUID in its hyphenated
// form. Values that do not parse are returned unchanged.
func FormatUUID(id string) string {
	if strings.Contains(id, "-") {
		return id
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return parsed.String()
}
