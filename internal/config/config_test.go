package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, env := range []string{"GMAIL_CLIENT_ID", "GMAIL_CLIENT_SECRET", "OUTLOOK_CLIENT_ID", "OUTLOOK_TENANT_ID"} {
		t.Setenv(env, "")
	}

	home := t.TempDir()
	cfg, err := Load("", home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Fetch.Limit != 5 {
		t.Errorf("Fetch.Limit = %d, want 5", cfg.Fetch.Limit)
	}
	if cfg.Outlook.TenantID != "common" {
		t.Errorf("Outlook.TenantID = %q, want common", cfg.Outlook.TenantID)
	}
	if cfg.HomeDir != home {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, home)
	}
	if got := cfg.AccountsDir(); got != filepath.Join(home, "accounts") {
		t.Errorf("AccountsDir() = %q", got)
	}
}

func TestLoad_File(t *testing.T) {
	home := t.TempDir()
	content := `
[gmail]
client_id = "gid"
client_secret = "gsecret"

[outlook]
client_id = "oid"
tenant_id = "contoso"

[fetch]
limit = 12
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gmail.ClientID != "gid" || cfg.Gmail.ClientSecret != "gsecret" {
		t.Errorf("Gmail = %+v", cfg.Gmail)
	}
	if cfg.Outlook.ClientID != "oid" || cfg.Outlook.TenantID != "contoso" {
		t.Errorf("Outlook = %+v", cfg.Outlook)
	}
	if cfg.Fetch.Limit != 12 {
		t.Errorf("Fetch.Limit = %d, want 12", cfg.Fetch.Limit)
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("GMAIL_CLIENT_ID", "env-gid")
	t.Setenv("GMAIL_CLIENT_SECRET", "env-gsecret")
	t.Setenv("OUTLOOK_CLIENT_ID", "env-oid")
	t.Setenv("OUTLOOK_TENANT_ID", "env-tenant")

	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gmail.ClientID != "env-gid" || cfg.Gmail.ClientSecret != "env-gsecret" {
		t.Errorf("Gmail = %+v, want env values", cfg.Gmail)
	}
	if cfg.Outlook.ClientID != "env-oid" || cfg.Outlook.TenantID != "env-tenant" {
		t.Errorf("Outlook = %+v, want env values", cfg.Outlook)
	}
}

func TestLoad_FileWinsOverEnv(t *testing.T) {
	t.Setenv("GMAIL_CLIENT_ID", "env-gid")

	home := t.TempDir()
	content := "[gmail]\nclient_id = \"file-gid\"\n"
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gmail.ClientID != "file-gid" {
		t.Errorf("Gmail.ClientID = %q, want file value", cfg.Gmail.ClientID)
	}
}

func TestLoad_BadTOML(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("not = [toml"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("", home); err == nil {
		t.Error("Load(bad toml) = nil error, want failure")
	}
}

func TestLoad_NonPositiveLimitReset(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte("[fetch]\nlimit = -3\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("", home)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Fetch.Limit != 5 {
		t.Errorf("Fetch.Limit = %d, want default 5", cfg.Fetch.Limit)
	}
}

func TestDefaultHome_EnvOverride(t *testing.T) {
	t.Setenv("MAILPEEK_HOME", "/tmp/elsewhere")
	if got := DefaultHome(); got != "/tmp/elsewhere" {
		t.Errorf("DefaultHome() = %q, want /tmp/elsewhere", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandPath("~/x"); got != filepath.Join(home, "x") {
		t.Errorf("expandPath(~/x) = %q", got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("expandPath(/abs/path) = %q", got)
	}
}
