// Package config handles loading and managing mailpeek configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// GmailConfig holds the Gmail OAuth client registration.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// OutlookConfig holds the Outlook OAuth client registration.
type OutlookConfig struct {
	ClientID string `toml:"client_id"`
	TenantID string `toml:"tenant_id"` // defaults to "common"
}

// FetchConfig holds message fetch settings.
type FetchConfig struct {
	Limit int `toml:"limit"` // messages per account (default: 5)
}

type Config struct {
	Gmail   GmailConfig   `toml:"gmail"`
	Outlook OutlookConfig `toml:"outlook"`
	Fetch   FetchConfig   `toml:"fetch"`

	// Computed path, not from the config file.
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default mailpeek home directory.
// Respects MAILPEEK_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MAILPEEK_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailpeek"
	}
	return filepath.Join(home, ".mailpeek")
}

// Load reads the configuration from the specified file. If path is empty,
// uses <home>/config.toml; if home is empty, uses DefaultHome. A missing
// config file is not an error. Environment variables fill in client
// credentials the file leaves blank.
func Load(path, home string) (*Config, error) {
	if home == "" {
		home = DefaultHome()
	}
	home = expandPath(home)
	if path == "" {
		path = filepath.Join(home, "config.toml")
	}
	path = expandPath(path)

	cfg := &Config{
		HomeDir: home,
		Fetch: FetchConfig{
			Limit: 5,
		},
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = "common"
	}
	if cfg.Fetch.Limit <= 0 {
		cfg.Fetch.Limit = 5
	}
	return cfg, nil
}

// applyEnv fills unset client credentials from the environment.
func applyEnv(cfg *Config) {
	setIfEmpty(&cfg.Gmail.ClientID, "GMAIL_CLIENT_ID")
	setIfEmpty(&cfg.Gmail.ClientSecret, "GMAIL_CLIENT_SECRET")
	setIfEmpty(&cfg.Outlook.ClientID, "OUTLOOK_CLIENT_ID")
	setIfEmpty(&cfg.Outlook.TenantID, "OUTLOOK_TENANT_ID")
}

func setIfEmpty(dst *string, env string) {
	if *dst == "" {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// AccountsDir returns the directory holding stored account credentials.
func (c *Config) AccountsDir() string {
	return filepath.Join(c.HomeDir, "accounts")
}

// expandPath expands a leading ~ to the user home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
