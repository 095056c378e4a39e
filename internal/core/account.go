package core

// AccountType is the user type passed to the game on launch
type AccountType string

const (
	AccountTypeMSA     AccountType = "msa"
	AccountTypeLegacy  AccountType = "legacy"
	AccountTypeOffline AccountType = "offline"
)

// OAuthAccount is a validated Microsoft-style session. It is immutable once
// constructed; a refresh produces a replacement object.
//
// Its JSON form deliberately has no "type" key: entries without one are
// decoded as OAuth accounts for compatibility with older stores.
type OAuthAccount struct {
	Name         string `json:"name"`
	UUID         string `json:"uuid"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Xuid         string `json:"xuid,omitempty"`
}

// YggdrasilAccount is a session against a third-party Yggdrasil server.
// Username and password are the original login credentials, kept only to
// support future silent re-authentication; both are optional for records
// written by older versions. They are stored in the clear.
type YggdrasilAccount struct {
	ServerURL   string `json:"serverUrl"`
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken,omitempty"`
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// LaunchAccount is the minimal projection handed to the launch pipeline.
type LaunchAccount struct {
	Type        AccountType
	Name        string
	UUID        string
	AccessToken string
	Xuid        string
}
