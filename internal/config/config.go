// Package config handles application configuration and paths.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	// Paths
	DataDir string `json:"dataDir"`

	// Yggdrasil auth server used when the login command has no --server flag
	AuthServerURL string `json:"authServerUrl"`

	// Account handling
	StoreAccounts              bool `json:"storeAccounts"`              // persist accounts.json on mutation
	RefreshOnLaunch            bool `json:"refreshOnLaunch"`            // refresh primary OAuth account at startup
	RefreshOnGameLaunch        bool `json:"refreshOnGameLaunch"`        // refresh primary OAuth account before launching
	FailLaunchOnRefreshFailure bool `json:"failLaunchOnRefreshFailure"` // abort launch if that refresh fails
	RefreshFailureDelete       bool `json:"refreshFailureDelete"`       // drop an account whose refresh failed

	// Optional startup login with static credentials
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`

	// Offline mode
	Offline         bool   `json:"offline"`
	OfflineType     string `json:"offlineType,omitempty"`
	OfflineUsername string `json:"offlineUsername,omitempty"`
	OfflineUUID     string `json:"offlineUuid,omitempty"`
	OfflineToken    string `json:"offlineToken,omitempty"`
	Xuid            string `json:"xuid,omitempty"`
}

// DefaultAuthServerURL is used when neither the config nor the login command
// specify a Yggdrasil server.
const DefaultAuthServerURL = "https://littleskin.cn/api/yggdrasil"

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:             getDefaultDataDir(),
		AuthServerURL:       DefaultAuthServerURL,
		StoreAccounts:       true,
		RefreshOnGameLaunch: true,
	}
}

// Load reads config from disk. Missing keys keep their defaults because the
// file is unmarshalled over a default-filled struct.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := filepath.Join(cfg.DataDir, "config.json")
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.AuthServerURL == "" {
		cfg.AuthServerURL = DefaultAuthServerURL
	}

	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	configPath := filepath.Join(c.DataDir, "config.json")
	return os.WriteFile(configPath, data, 0644)
}

func getDefaultDataDir() string {
	// Check for portable mode first
	exe, _ := os.Executable()
	portablePath := filepath.Join(filepath.Dir(exe), "data")
	if _, err := os.Stat(portablePath); err == nil {
		return portablePath
	}

	// Use XDG/platform-specific directories
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "headlessmc")
	}

	home, _ := os.UserHomeDir()
	switch {
	case os.Getenv("APPDATA") != "": // Windows
		return filepath.Join(os.Getenv("APPDATA"), "headlessmc")
	default: // Linux/macOS
		return filepath.Join(home, ".local", "share", "headlessmc")
	}
}
