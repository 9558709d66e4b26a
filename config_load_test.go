package goSession

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

func writeConfigFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Session != def.Session || cfg.Watchdog != def.Watchdog || cfg.Headers != def.Headers {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Storage.Driver != storage.DriverMemory || !cfg.Events.Async || cfg.Events.BufferSize != 256 {
		t.Fatalf("unexpected storage or events %+v %+v", cfg.Storage, cfg.Events)
	}
}

func TestLoadConfigYAMLWithEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "gosession.yaml", `
session:
  admin_duration: 2h
watchdog:
  warning_threshold: 10m
  warning_mode: every_tick
headers:
  client_id: X-Tenant
storage:
  driver: file
  path: /tmp/gosession/session.json
`)
	t.Setenv("GOSESSION_SESSION_USER_DURATION", "12h")
	t.Setenv("GOSESSION_EVENTS_DROP_IF_FULL", "false")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Session.AdminDuration != 2*time.Hour || cfg.Session.UserDuration != 12*time.Hour {
		t.Fatalf("unexpected session %+v", cfg.Session)
	}
	if cfg.Watchdog.WarningThreshold != 10*time.Minute || cfg.Watchdog.WarningMode != WarningModeEveryTick {
		t.Fatalf("unexpected watchdog %+v", cfg.Watchdog)
	}
	if cfg.Watchdog.TickInterval != time.Minute {
		t.Fatalf("tick interval default lost: %v", cfg.Watchdog.TickInterval)
	}
	if cfg.Headers.ClientID != "X-Tenant" || cfg.Headers.UserEmail != "X-User-Email" {
		t.Fatalf("unexpected headers %+v", cfg.Headers)
	}
	if cfg.Storage.Driver != storage.DriverFile || cfg.Storage.Path != "/tmp/gosession/session.json" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Events.DropIfFull {
		t.Fatal("env override for events.drop_if_full ignored")
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfigFile(t, "gosession.json", `{"jwt": {"signing_method": "hs256", "verify_key": "secret", "leeway": "45s"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.SigningMethod != "hs256" || cfg.JWT.VerifyKey != "secret" || cfg.JWT.Leeway != 45*time.Second {
		t.Fatalf("unexpected jwt %+v", cfg.JWT)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := writeConfigFile(t, "gosession.toml", `
[storage]
driver = "redis"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected redis without addr to fail validation")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
