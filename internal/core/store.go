package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const accountsFile = "accounts.json"

// AccountLoadResult is the disjoint union read from the store file.
type AccountLoadResult struct {
	OAuthAccounts     []*OAuthAccount
	YggdrasilAccounts []*YggdrasilAccount
}

// AccountStore persists both account kinds into one JSON document.
// Persistence can be disabled; Load still works so a session can use
// previously stored accounts without writing new ones back.
type AccountStore struct {
	path    string
	persist bool
}

// NewAccountStore creates a store under dataDir. When persist is false, Save
// becomes a no-op.
func NewAccountStore(dataDir string, persist bool) *AccountStore {
	return &AccountStore{
		path:    filepath.Join(dataDir, accountsFile),
		persist: persist,
	}
}

// storedDocument is the on-disk shape. Entries are kept raw so a single bad
// one can be skipped; the "type" key discriminates the two account kinds.
type storedDocument struct {
	Accounts []json.RawMessage `json:"accounts"`
}

// Load reads the store file. An absent file or a missing accounts array
// yields empty lists. Individual entries that fail to decode are skipped
// with a warning rather than failing the whole load.
func (s *AccountStore) Load() (*AccountLoadResult, error) {
	result := &AccountLoadResult{}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	var root json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	if string(root) == "null" {
		return result, nil
	}

	var doc storedDocument
	if err := json.Unmarshal(root, &doc); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", s.path, err)
	}

	for _, raw := range doc.Accounts {
		if err := decodeEntry(raw, result); err != nil {
			log.Warn().Err(err).Msg("skipping unreadable account entry")
		}
	}
	return result, nil
}

func decodeEntry(raw json.RawMessage, result *AccountLoadResult) error {
	var discriminant struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &discriminant); err != nil {
		return err
	}

	if discriminant.Type == "yggdrasil" {
		var acc YggdrasilAccount
		if err := json.Unmarshal(raw, &acc); err != nil {
			return err
		}
		if acc.ServerURL == "" || acc.AccessToken == "" || acc.UUID == "" || acc.Name == "" {
			return errors.New("yggdrasil account entry missing required fields")
		}
		result.YggdrasilAccounts = append(result.YggdrasilAccounts, &acc)
		return nil
	}

	var acc OAuthAccount
	if err := json.Unmarshal(raw, &acc); err != nil {
		return err
	}
	if acc.Name == "" || acc.UUID == "" || acc.AccessToken == "" {
		return errors.New("account entry missing required fields")
	}
	result.OAuthAccounts = append(result.OAuthAccounts, &acc)
	return nil
}

// Save serializes both lists into one pretty-printed document. The write goes
// to a temp file which is renamed into place, so a concurrent Load never sees
// a partial document.
func (s *AccountStore) Save(oauthAccounts []*OAuthAccount, yggdrasilAccounts []*YggdrasilAccount) error {
	if !s.persist {
		return nil
	}

	entries := make([]json.RawMessage, 0, len(oauthAccounts)+len(yggdrasilAccounts))
	for _, acc := range oauthAccounts {
		raw, err := json.Marshal(acc)
		if err != nil {
			log.Error().Err(err).Str("name", acc.Name).Msg("failed to serialize account")
			continue
		}
		entries = append(entries, raw)
	}
	for _, acc := range yggdrasilAccounts {
		raw, err := json.Marshal(struct {
			Type string `json:"type"`
			*YggdrasilAccount
		}{"yggdrasil", acc})
		if err != nil {
			log.Error().Err(err).Str("name", acc.Name).Msg("failed to serialize yggdrasil account")
			continue
		}
		entries = append(entries, raw)
	}

	data, err := json.MarshalIndent(storedDocument{Accounts: entries}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
