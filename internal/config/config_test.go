package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://file-host/librarium"
secretKey: "file-secret"
allowedHosts: ["localhost"]
sessionTTL: "30m"
`)
	t.Setenv("DATABASE_URL", "postgres://env-host/librarium")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("ALLOWED_HOSTS", "example.com, api.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env-host/librarium" {
		t.Fatalf("expected env database URL, got %q", cfg.DatabaseURL)
	}
	if cfg.SecretKey != "env-secret" {
		t.Fatalf("expected env secret key, got %q", cfg.SecretKey)
	}
	if len(cfg.AllowedHosts) != 2 || cfg.AllowedHosts[1] != "api.example.com" {
		t.Fatalf("expected parsed allowed hosts, got %v", cfg.AllowedHosts)
	}

	ttl, err := ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		t.Fatalf("parse session TTL: %v", err)
	}
	if ttl != 30*time.Minute {
		t.Fatalf("expected 30m TTL, got %v", ttl)
	}
}

func TestLoadRequiresSecretKey(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://host/librarium"
allowedHosts: ["localhost"]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing secretKey error")
	}
}

func TestLoadRequiresAllowedHostsInProduction(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://host/librarium"
secretKey: "secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected missing allowedHosts error when debug is off")
	}

	path = writeConfig(t, `
port: "8080"
debug: true
databaseURL: "postgres://host/librarium"
secretKey: "secret"
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("debug config should not require allowedHosts: %v", err)
	}
}

func TestParseSessionTTLRejectsGarbage(t *testing.T) {
	if _, err := ParseSessionTTL("not-a-duration"); err == nil {
		t.Fatalf("expected parse error")
	}
}
